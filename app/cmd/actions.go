package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexcodex/codeagent/agents"
	"github.com/lexcodex/codeagent/format"
	"github.com/lexcodex/codeagent/framework"
	"github.com/lexcodex/codeagent/llm"
	"github.com/lexcodex/codeagent/validate"
)

// engineFactory builds the inference engine; tests replace it.
var engineFactory = llm.New

// newGenerateCmd generates code for a task description.
func newGenerateCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "generate [task]",
		Short: "Generate code for a task (use - to read stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := parseLanguageFlag(language)
			if err != nil {
				return err
			}
			task, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			agent, err := buildAgent(cmd)
			if err != nil {
				return err
			}
			defer agent.Close()
			artifact, err := agent.GenerateCode(cmd.Context(), task, lang)
			if err != nil {
				return err
			}
			printSection(cmd, "Generated Code", artifact.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Target language: python or cpp")
	_ = cmd.MarkFlagRequired("language")
	return cmd
}

// newExplainCmd explains a code snippet.
func newExplainCmd() *cobra.Command {
	var render bool
	cmd := &cobra.Command{
		Use:   "explain [code]",
		Short: "Explain code (use - to read stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			agent, err := buildAgent(cmd)
			if err != nil {
				return err
			}
			defer agent.Close()
			explanation, err := agent.ExplainCode(cmd.Context(), code)
			if err != nil {
				return err
			}
			if render {
				explanation = renderMarkdown(explanation)
			}
			printSection(cmd, "Code Explanation", explanation)
			return nil
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render the explanation as markdown")
	return cmd
}

// newRefactorCmd refactors a code snippet.
func newRefactorCmd() *cobra.Command {
	var language string
	var instructions string
	cmd := &cobra.Command{
		Use:   "refactor [code]",
		Short: "Refactor code (use - to read stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := framework.LanguageUnknown
			if language != "" {
				var err error
				if lang, err = parseLanguageFlag(language); err != nil {
					return err
				}
			}
			code, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			agent, err := buildAgent(cmd)
			if err != nil {
				return err
			}
			defer agent.Close()
			artifact, err := agent.RefactorCode(cmd.Context(), code, instructions, lang)
			if err != nil {
				return err
			}
			printSection(cmd, "Refactored Code", artifact.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Language of the code: python or cpp")
	cmd.Flags().StringVar(&instructions, "instructions", agents.DefaultRefactorInstructions, "Refactoring instructions")
	return cmd
}

// newInfoCmd prints the loaded model description.
func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show model path and backend configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := buildAgent(cmd)
			if err != nil {
				return err
			}
			defer agent.Close()
			printSection(cmd, "Model Info", renderValue(infoMap(agent)))
			return nil
		},
	}
}

func infoMap(agent *agents.Agent) map[string]interface{} {
	info := agent.Info()
	cfg := agent.Config()
	info["config"] = map[string]interface{}{
		"name":              string(cfg.Name),
		"model":             cfg.Model,
		"trust_remote_code": cfg.TrustRemoteCode,
		"max_tokens":        cfg.Sampling.MaxTokens,
		"temperature":       cfg.Sampling.Temperature,
		"top_p":             cfg.Sampling.TopP,
		"context_window":    cfg.ContextWindow,
	}
	return info
}

// parseLanguageFlag accepts the languages with formatter/validator support.
func parseLanguageFlag(raw string) (framework.Language, error) {
	lang := framework.ParseLanguage(raw)
	if !lang.Known() {
		return "", fmt.Errorf("unsupported language %q (want python, cpp or c)", raw)
	}
	return lang, nil
}

// buildAgent assembles the engine, formatter and validator from config and
// loads the model.
func buildAgent(cmd *cobra.Command) (*agents.Agent, error) {
	backend, err := agents.ParseBackend(agentName)
	if err != nil {
		return nil, err
	}
	if modelPath == "" {
		return nil, errors.New("--model-path is required")
	}
	cfg, err := globalCfg.Backend(backend)
	if err != nil {
		return nil, err
	}
	inner, err := engineFactory(llm.Kind(globalCfg.Engine.Kind), globalCfg.Engine.Endpoint)
	if err != nil {
		return nil, err
	}
	if o, ok := inner.(*llm.Ollama); ok {
		o.Logger = logger.Named("llm")
		o.SetDebugLogging(globalCfg.Logging.LLM)
	}
	engine := &llm.InstrumentedEngine{Inner: inner, Telemetry: telemetry, Debug: globalCfg.Logging.LLM}

	runner := framework.NewLocalCommandRunner(globalCfg.Tools.Timeout)
	formatter, err := buildFormatter(runner)
	if err != nil {
		return nil, err
	}
	validator, err := buildValidator(runner)
	if err != nil {
		return nil, err
	}
	agent, err := agents.New(cmd.Context(), engine, modelPath, cfg,
		agents.WithFormatter(formatter),
		agents.WithValidator(validator),
		agents.WithValidateOutput(globalCfg.Features.ValidateOutput),
		agents.WithServedModel(globalCfg.Engine.Model),
		agents.WithLogger(logger.Named("agent")),
		agents.WithTelemetry(telemetry),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("created agent successfully", zap.String("agent", string(backend)))
	return agent, nil
}

func buildFormatter(runner framework.CommandRunner) (*format.Dispatcher, error) {
	cfg, err := globalCfg.FormatConfig(workspace)
	if err != nil {
		return nil, err
	}
	return format.NewStandard(cfg, runner,
		format.WithLogger(logger.Named("format")),
		format.WithTelemetry(telemetry),
		format.WithCacheTTL(globalCfg.Features.CacheTTL),
	), nil
}

func buildValidator(runner framework.CommandRunner) (*validate.Validator, error) {
	cfg, err := globalCfg.ValidateConfig()
	if err != nil {
		return nil, err
	}
	return validate.NewStandard(cfg, runner,
		validate.WithLogger(logger.Named("validate")),
		validate.WithTelemetry(telemetry),
	)
}
