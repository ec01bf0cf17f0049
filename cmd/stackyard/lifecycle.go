package main

import (
	"fmt"

	"github.com/nholik/stackyard/internal/lifecycle"
	"github.com/spf13/cobra"
)

var lifecycleShort = map[string]string{
	"start":   "Create and start the containers of a stack",
	"stop":    "Stop the containers of a stack without removing them",
	"destroy": "Stop and remove the containers and networks of a stack",
}

func newLifecycleCommand(a *app, use, operation string) *cobra.Command {
	op, ok := lifecycle.ParseOperation(operation)
	if !ok {
		panic(fmt.Sprintf("unknown lifecycle operation %q", operation))
	}

	return &cobra.Command{
		Use:   use + " NAME",
		Short: lifecycleShort[operation],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stack, err := a.coord.Engine.Stack(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.coord.Operator.Do(ctx, op, stack.DefinitionPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s done\n", stack.Name, op)
			return nil
		},
	}
}
