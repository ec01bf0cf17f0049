package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newLogsCommand(a *app) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs NAME",
		Short: "Print recent logs of a stack, optionally following new output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			stack, err := a.coord.Engine.Stack(ctx, args[0])
			if err != nil {
				return err
			}
			backfill, err := a.coord.Logs.Backfill(ctx, stack.DefinitionPath)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(out, backfill); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			stream, err := a.coord.Logs.Open(ctx, stack.Name, stack.DefinitionPath)
			if err != nil {
				return err
			}
			defer stream.Close()

			for event := range stream.Events() {
				if _, err := io.WriteString(out, event.Data); err != nil {
					return err
				}
			}
			<-stream.Done()
			a.logger.Debug().Str("reason", string(stream.Reason())).Msg("log stream ended")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep streaming new output until interrupted")
	return cmd
}
