package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const ruleWidth = 80

var colorHeader = lipgloss.Color("39")

// printSection writes a styled title, an 80 column rule and the body.
func printSection(cmd *cobra.Command, title, body string) {
	out := cmd.OutOrStdout()
	header := lipgloss.NewRenderer(out).NewStyle().Bold(true).Foreground(colorHeader)
	fmt.Fprintln(out)
	fmt.Fprintln(out, header.Render(title+":"))
	fmt.Fprintln(out, strings.Repeat("=", ruleWidth))
	fmt.Fprintln(out, body)
}

// readInput returns arg, or stdin when arg is "-".
func readInput(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// renderMarkdown renders text for the terminal, falling back to plain text.
func renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(ruleWidth),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
