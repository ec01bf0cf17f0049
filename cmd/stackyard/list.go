package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/status"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", outputTable, "output format: table or json")
}

func checkOutput(output string) error {
	if output != outputTable && output != outputJSON {
		return fmt.Errorf("unknown output format %q", output)
	}
	return nil
}

func newListCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List managed and running stacks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			stacks, err := a.coord.Engine.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(stacks, func(i, j int) bool {
				return stacks[i].Name < stacks[j].Name
			})
			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), stacks)
			}
			renderStacks(cmd.OutOrStdout(), stacks)
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newPsCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "ps NAME",
		Short: "Show the services of one stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			ctx := cmd.Context()
			stack, err := a.coord.Engine.Stack(ctx, args[0])
			if err != nil {
				return err
			}
			details, err := a.coord.Status.GetStackServiceDetails(ctx, stack.DefinitionPath)
			if err != nil {
				return err
			}
			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), details)
			}
			renderServices(cmd.OutOrStdout(), details)
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func renderStacks(w io.Writer, stacks []reconcile.Stack) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Status", "Control", "Services", "Definition"})
	for _, stack := range stacks {
		t.AppendRow(table.Row{stack.Name, stack.Status, stack.Control, formatCounts(stack.Services), stack.DefinitionPath})
	}
	t.Render()
}

func renderServices(w io.Writer, details []status.ServiceDetail) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Service", "State", "Image", "Ports"})
	for _, detail := range details {
		t.AppendRow(table.Row{detail.Name, detail.State, detail.Image, formatPorts(detail.Ports)})
	}
	t.Render()
}

func formatCounts(counts []compose.StateCount) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s(%d)", c.State, c.Count))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func formatPorts(ports []compose.Port) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.Published == "" {
			parts = append(parts, fmt.Sprintf("%d/%s", p.Target, p.Protocol))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s->%d/%s", p.Published, p.Target, p.Protocol))
	}
	return strings.Join(parts, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
