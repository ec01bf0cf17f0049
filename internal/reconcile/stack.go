package reconcile

import (
	"github.com/nholik/stackyard/internal/compose"
)

// AggregateStatus is a stack-level status derived from its service states.
type AggregateStatus string

const (
	StatusActive        AggregateStatus = "active"
	StatusStopped       AggregateStatus = "stopped"
	StatusTransitioning AggregateStatus = "transitioning"
	StatusInactive      AggregateStatus = "inactive"
)

// ControlLevel expresses how certain it is that a managed definition and a
// runtime stack are the same entity.
type ControlLevel string

const (
	ControlFull    ControlLevel = "full"
	ControlPartial ControlLevel = "partial"
	ControlNone    ControlLevel = "none"
)

// Stack is the unified view of one stack name.
type Stack struct {
	Name           string               `json:"name"`
	Directory      string               `json:"directory,omitempty"`
	DefinitionPath string               `json:"definitionPath"`
	Status         AggregateStatus      `json:"status"`
	Services       []compose.StateCount `json:"services"`
	Control        ControlLevel         `json:"control"`
	// RuntimePath is the path the runtime reports when it differs from DefinitionPath.
	RuntimePath string `json:"runtimePath,omitempty"`
}

// Managed reports whether the stack has a definition under the catalog root.
func (s Stack) Managed() bool {
	return s.Control != ControlNone
}

// Aggregate derives the stack status from a per-state distribution. Entries
// with a zero count are ignored.
func Aggregate(counts []compose.StateCount) AggregateStatus {
	var total, running, exited int
	for _, entry := range counts {
		if entry.Count <= 0 {
			continue
		}
		total += entry.Count
		switch entry.State {
		case compose.StateRunning:
			running += entry.Count
		case compose.StateExited:
			exited += entry.Count
		}
	}

	switch {
	case total == 0:
		return StatusInactive
	case running == total:
		return StatusActive
	case exited == total:
		return StatusStopped
	default:
		return StatusTransitioning
	}
}
