package reconcile

import (
	"github.com/nholik/stackyard/internal/catalog"
	"github.com/nholik/stackyard/internal/status"
)

// Dropped is a runtime entry discarded because its name was already emitted.
type Dropped struct {
	Summary     status.StackSummary
	KeptPath    string
	KeptControl ControlLevel
}

// Reconcile merges managed definitions with runtime summaries. Managed
// stacks come first in catalog order, followed by runtime-only stacks in
// runtime order. Each name appears once; a managed definition consumes the
// first runtime entry with its name and later entries with an emitted name
// are returned as dropped.
func Reconcile(definitions []catalog.Definition, summaries []status.StackSummary) ([]Stack, []Dropped) {
	remaining := make([]status.StackSummary, len(summaries))
	copy(remaining, summaries)

	stacks := make([]Stack, 0, len(definitions)+len(summaries))
	emitted := make(map[string]int, len(definitions)+len(summaries))

	for _, def := range definitions {
		stack := Stack{
			Name:           def.Name,
			Directory:      def.Directory,
			DefinitionPath: def.Path,
			Status:         StatusInactive,
			Control:        ControlFull,
		}

		if idx := indexByName(remaining, def.Name); idx >= 0 {
			entry := remaining[idx]
			remaining = append(remaining[:idx], remaining[idx+1:]...)

			stack.Services = entry.Services
			stack.Status = Aggregate(entry.Services)
			if entry.DefinitionPath != def.Path {
				stack.Control = ControlPartial
				stack.RuntimePath = entry.DefinitionPath
			}
		}

		emitted[stack.Name] = len(stacks)
		stacks = append(stacks, stack)
	}

	var dropped []Dropped
	for _, entry := range remaining {
		if idx, ok := emitted[entry.Name]; ok {
			dropped = append(dropped, Dropped{
				Summary:     entry,
				KeptPath:    stacks[idx].DefinitionPath,
				KeptControl: stacks[idx].Control,
			})
			continue
		}

		emitted[entry.Name] = len(stacks)
		stacks = append(stacks, Stack{
			Name:           entry.Name,
			DefinitionPath: entry.DefinitionPath,
			Status:         Aggregate(entry.Services),
			Services:       entry.Services,
			Control:        ControlNone,
		})
	}

	return stacks, dropped
}

func indexByName(summaries []status.StackSummary, name string) int {
	for i, summary := range summaries {
		if summary.Name == name {
			return i
		}
	}
	return -1
}
