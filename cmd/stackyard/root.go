package main

import (
	"github.com/nholik/stackyard/internal/config"
	"github.com/nholik/stackyard/internal/coordinator"
	"github.com/nholik/stackyard/internal/logging"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	// exec replaces the docker compose client when set.
	exec   runtime.Executor
	cfg    config.Config
	logger zerolog.Logger
	coord  *coordinator.Coordinator
}

func newRootCommand(exec runtime.Executor) *cobra.Command {
	a := &app{exec: exec}

	root := &cobra.Command{
		Use:          "stackyard",
		Short:        "Manage docker compose stacks kept under one directory",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.coord == nil {
				return nil
			}
			return a.coord.Close()
		},
	}

	root.AddCommand(
		newServeCommand(a),
		newListCommand(a),
		newPsCommand(a),
		newLifecycleCommand(a, "up", "start"),
		newLifecycleCommand(a, "stop", "stop"),
		newLifecycleCommand(a, "down", "destroy"),
		newLogsCommand(a),
		newDeployCommand(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cmd.Name() == "serve" {
		a.logger = logging.NewWithLevel(cfg.LogLevel)
	} else {
		a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
	}

	coord, err := coordinator.New(a.logger, cfg, a.exec)
	if err != nil {
		return err
	}
	a.coord = coord
	return nil
}
