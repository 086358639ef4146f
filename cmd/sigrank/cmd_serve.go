package main

import (
	"sigrank/internal/app"

	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll the snapshot feed on schedule, watch the inbox and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.NewApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}
