package main

import (
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the watch loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Info().Str("stacks_dir", a.cfg.StacksDir).Msg("stackyard starting")
			return a.coord.Run(cmd.Context())
		},
	}
}
