package main

import (
	"fmt"

	"github.com/nholik/stackyard/internal/config"
	"github.com/spf13/cobra"
)

func newDeployCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create a stack definition from a deployment request file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := config.LoadDeploymentFile(file)
			if err != nil {
				return err
			}
			def, err := a.coord.Deployer.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s at %s\n", def.Name, def.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a YAML deployment request")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
