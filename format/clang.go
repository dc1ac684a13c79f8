package format

import (
	"context"
	"time"

	"github.com/lexcodex/codeagent/framework"
)

// CStyle is the clang-format configuration.
type CStyle struct {
	Style string `yaml:"style" toml:"style"`
}

// DefaultCStyle uses the Google style.
func DefaultCStyle() CStyle {
	return CStyle{Style: "google"}
}

// ClangFormat filters code through clang-format on stdin.
type ClangFormat struct {
	Command []string
	Style   CStyle
	// AssumeFilename tells clang-format which language the stdin holds.
	AssumeFilename string
	Runner         framework.CommandRunner
	Timeout        time.Duration
}

// NewClangFormat builds a clang-format formatter for lang.
func NewClangFormat(command []string, style CStyle, lang framework.Language, runner framework.CommandRunner, timeout time.Duration) *ClangFormat {
	if len(command) == 0 {
		command = []string{"clang-format"}
	}
	if style.Style == "" {
		style = DefaultCStyle()
	}
	return &ClangFormat{
		Command:        command,
		Style:          style,
		AssumeFilename: "input" + lang.Extension(),
		Runner:         runner,
		Timeout:        timeout,
	}
}

// Format implements Formatter.
func (c *ClangFormat) Format(ctx context.Context, code string) (string, error) {
	if c.Runner == nil {
		return "", errNoRunner
	}
	args := append([]string{}, c.Command...)
	args = append(args, "-style="+c.Style.Style)
	if c.AssumeFilename != "" {
		args = append(args, "--assume-filename="+c.AssumeFilename)
	}
	stdout, stderr, err := c.Runner.Run(ctx, framework.CommandRequest{
		Args:    args,
		Input:   code,
		Timeout: c.Timeout,
	})
	if err != nil {
		return "", toolError("clang-format", err, stderr)
	}
	return stdout, nil
}
