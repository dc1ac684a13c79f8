package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexcodex/codeagent/agents"
	"github.com/lexcodex/codeagent/framework"
)

var (
	cfgFile    string
	workspace  string
	agentName  string
	modelPath  string
	engineKind string
	endpoint   string
	verbose    bool

	globalCfg *agents.GlobalConfig
	logger    = zap.NewNop()
	telemetry framework.Telemetry
	cleanup   func()
)

// Execute is the entry point for the CLI.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error("command failed", zap.Error(err))
		if cleanup != nil {
			cleanup()
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codeagent",
		Short:         "AI coding agent for Python and C++",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if workspace == "" {
				if wd, err := os.Getwd(); err == nil {
					workspace = wd
				} else {
					return err
				}
			}
			if cfgFile == "" {
				cfgFile = agents.DefaultConfigPath(workspace)
			}
			cfg, err := agents.LoadGlobalConfig(cfgFile)
			if err != nil {
				return err
			}
			globalCfg = cfg
			if engineKind != "" {
				globalCfg.Engine.Kind = engineKind
			}
			if endpoint != "" {
				globalCfg.Engine.Endpoint = endpoint
			}
			logger, telemetry, cleanup, err = buildLogging(globalCfg.Logging, workspace, verbose, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cleanup != nil {
				cleanup()
				cleanup = nil
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&workspace, "workspace", "", "Workspace directory")
	flags.StringVar(&cfgFile, "config", "", "Path to codeagent config file (.yaml or .toml)")
	flags.StringVar(&agentName, "agent", string(agents.BackendClaude), "Agent backend: claude or qwen")
	flags.StringVar(&modelPath, "model-path", "", "Path to the model weights")
	flags.StringVar(&engineKind, "engine", "", "Inference engine: ollama or openai")
	flags.StringVar(&endpoint, "endpoint", "", "Inference server endpoint")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newGenerateCmd(),
		newExplainCmd(),
		newRefactorCmd(),
		newFormatCmd(),
		newValidateCmd(),
		newInfoCmd(),
		newDoctorCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return root
}
