package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/codeagent/format"
	"github.com/lexcodex/codeagent/framework"
	"github.com/lexcodex/codeagent/validate"
)

// newFormatCmd formats files, or stdin when the only argument is "-".
func newFormatCmd() *cobra.Command {
	var language string
	var write bool
	cmd := &cobra.Command{
		Use:   "format [file...]",
		Short: "Format source files with black or clang-format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := optionalLanguage(language)
			if err != nil {
				return err
			}
			runner := framework.NewLocalCommandRunner(globalCfg.Tools.Timeout)
			formatter, err := buildFormatter(runner)
			if err != nil {
				return err
			}
			if len(args) == 1 && args[0] == "-" {
				if !lang.Known() {
					return fmt.Errorf("--language is required when reading stdin")
				}
				code, err := readInput(cmd, "-")
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.Format(cmd.Context(), lang, code))
				return nil
			}
			results, err := format.FormatFiles(cmd.Context(), formatter, args, lang, globalCfg.Features.MaxConcurrent, write)
			if err != nil {
				return err
			}
			for _, res := range results {
				if write {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.Path, res.Policy)
					continue
				}
				printSection(cmd, "Formatted Code ("+res.Path+")", res.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Override the language inferred from the file extension")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite files in place")
	return cmd
}

// newValidateCmd checks the syntax of files, or stdin when the only
// argument is "-". Any invalid input makes the command fail.
func newValidateCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check the syntax of source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := optionalLanguage(language)
			if err != nil {
				return err
			}
			runner := framework.NewLocalCommandRunner(globalCfg.Tools.Timeout)
			validator, err := buildValidator(runner)
			if err != nil {
				return err
			}
			var results []validate.FileResult
			if len(args) == 1 && args[0] == "-" {
				if !lang.Known() {
					return fmt.Errorf("--language is required when reading stdin")
				}
				code, err := readInput(cmd, "-")
				if err != nil {
					return err
				}
				results = []validate.FileResult{{Path: "<stdin>", Language: lang, Result: validator.Check(cmd.Context(), lang, code)}}
			} else {
				results, err = validate.ValidateFiles(cmd.Context(), validator, args, lang, globalCfg.Features.MaxConcurrent)
				if err != nil {
					return err
				}
			}
			invalid := 0
			for _, res := range results {
				status := "valid"
				if !res.Valid {
					status = "invalid"
					invalid++
				}
				detail := string(res.Policy)
				if res.Checker != "" {
					detail += ", " + res.Checker
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", res.Path, status, detail)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d inputs failed validation", invalid, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Override the language inferred from the file extension")
	return cmd
}

func optionalLanguage(raw string) (framework.Language, error) {
	if raw == "" {
		return framework.LanguageUnknown, nil
	}
	return parseLanguageFlag(raw)
}
