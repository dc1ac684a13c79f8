package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/codeagent/internal/setup"
	"github.com/lexcodex/codeagent/llm"
	"github.com/lexcodex/codeagent/validate"
)

// newDoctorCmd reports whether the inference server and the external tools
// are available.
func newDoctorCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the inference server and formatter/checker tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := configuredTools()
			if err != nil {
				return err
			}
			report, err := setup.Detect(cmd.Context(), setup.Options{
				Workspace:  workspace,
				EngineKind: llm.Kind(globalCfg.Engine.Kind),
				Endpoint:   globalCfg.Engine.Endpoint,
				Tools:      tools,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			engine := report.Engine
			if engine.Reachable {
				fmt.Fprintf(out, "engine: %s at %s (%d models)\n", engine.Kind, engine.Endpoint, len(engine.Models))
				for _, m := range engine.Models {
					fmt.Fprintf(out, "  - %s\n", m)
				}
			} else {
				fmt.Fprintf(out, "engine: %s at %s unreachable: %s\n", engine.Kind, engine.Endpoint, engine.LastError)
			}
			for _, t := range report.Tools {
				where := "missing"
				if t.Available {
					where = t.Path
				}
				fmt.Fprintf(out, "%s: %s (%s)\n", t.Role, strings.Join(t.Command, " "), where)
			}
			langs := make([]string, 0, len(report.Sources))
			for lang := range report.Sources {
				langs = append(langs, lang)
			}
			sort.Strings(langs)
			for _, lang := range langs {
				fmt.Fprintf(out, "sources: %d %s files\n", report.Sources[lang], lang)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// configuredTools lists the commands the formatter and validator will run.
func configuredTools() ([]setup.Tool, error) {
	fc, err := globalCfg.FormatConfig(workspace)
	if err != nil {
		return nil, err
	}
	vc, err := globalCfg.ValidateConfig()
	if err != nil {
		return nil, err
	}
	tools := []setup.Tool{
		{Role: "python formatter", Command: fc.PythonCommand},
		{Role: "c/c++ formatter", Command: fc.ClangCommand},
		{Role: "c++ compiler", Command: vc.CPPCompiler},
		{Role: "c compiler", Command: vc.CCompiler},
	}
	if vc.PythonChecker == validate.PythonInterpreter {
		tools = append(tools, setup.Tool{Role: "python interpreter", Command: vc.PythonCommand})
	}
	return tools, nil
}
