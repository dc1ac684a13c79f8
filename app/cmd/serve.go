package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/lexcodex/codeagent/server"
)

// newServeCmd loads the model once and serves it over HTTP until
// interrupted.
func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generate/explain/refactor over a JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := buildAgent(cmd)
			if err != nil {
				return err
			}
			defer agent.Close()
			api := &server.APIServer{Agent: agent, Logger: logger.Named("server")}
			err = api.ServeContext(cmd.Context(), addr)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}
