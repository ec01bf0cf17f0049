package transition

import (
	"sort"

	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/reconcile"
)

// Snapshot is a reconciled view keyed by stack name.
type Snapshot map[string]reconcile.Stack

// NewSnapshot indexes stacks by name.
func NewSnapshot(stacks []reconcile.Stack) Snapshot {
	snapshot := make(Snapshot, len(stacks))
	for _, stack := range stacks {
		snapshot[stack.Name] = stack
	}
	return snapshot
}

// ServiceChange captures service count changes between snapshots.
type ServiceChange struct {
	PreviousRunning int `json:"previousRunning"`
	CurrentRunning  int `json:"currentRunning"`
	PreviousTotal   int `json:"previousTotal"`
	CurrentTotal    int `json:"currentTotal"`
	RunningDelta    int `json:"runningDelta"`
}

// StackTransition captures an aggregate status change of one stack.
type StackTransition struct {
	Stack          string                    `json:"stack"`
	PreviousStatus reconcile.AggregateStatus `json:"previousStatus,omitempty"`
	CurrentStatus  reconcile.AggregateStatus `json:"currentStatus"`
	Control        reconcile.ControlLevel    `json:"control"`
	DefinitionPath string                    `json:"definitionPath,omitempty"`
	ServiceChange  *ServiceChange            `json:"serviceChange,omitempty"`
}

// Detect compares the previous snapshot with the current view. Without a
// previous snapshot only transitioning stacks are reported. Stacks that
// vanished from the view are reported as inactive.
func Detect(prev Snapshot, current []reconcile.Stack) []StackTransition {
	firstRun := prev == nil

	transitions := make([]StackTransition, 0)
	seen := make(map[string]struct{}, len(current))

	for _, stack := range current {
		seen[stack.Name] = struct{}{}
		prevStack, hadPrev := prev[stack.Name]

		switch {
		case firstRun:
			if stack.Status != reconcile.StatusTransitioning {
				continue
			}
		case hadPrev:
			if prevStack.Status == stack.Status {
				continue
			}
		default:
			if stack.Status == reconcile.StatusInactive {
				continue
			}
		}

		transitions = append(transitions, StackTransition{
			Stack:          stack.Name,
			PreviousStatus: prevStack.Status,
			CurrentStatus:  stack.Status,
			Control:        stack.Control,
			DefinitionPath: stack.DefinitionPath,
			ServiceChange:  buildServiceChange(prevStack, stack, hadPrev),
		})
	}

	for name, prevStack := range prev {
		if _, ok := seen[name]; ok || prevStack.Status == reconcile.StatusInactive {
			continue
		}
		transitions = append(transitions, StackTransition{
			Stack:          name,
			PreviousStatus: prevStack.Status,
			CurrentStatus:  reconcile.StatusInactive,
			Control:        prevStack.Control,
			DefinitionPath: prevStack.DefinitionPath,
			ServiceChange:  buildServiceChange(prevStack, reconcile.Stack{}, true),
		})
	}

	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].Stack < transitions[j].Stack
	})

	return transitions
}

func buildServiceChange(prev, current reconcile.Stack, hadPrev bool) *ServiceChange {
	prevRunning, prevTotal := countServices(prev.Services)
	curRunning, curTotal := countServices(current.Services)
	if !hadPrev && curTotal == 0 {
		return nil
	}
	return &ServiceChange{
		PreviousRunning: prevRunning,
		CurrentRunning:  curRunning,
		PreviousTotal:   prevTotal,
		CurrentTotal:    curTotal,
		RunningDelta:    curRunning - prevRunning,
	}
}

func countServices(counts []compose.StateCount) (running, total int) {
	for _, entry := range counts {
		total += entry.Count
		if entry.State == compose.StateRunning {
			running += entry.Count
		}
	}
	return running, total
}
