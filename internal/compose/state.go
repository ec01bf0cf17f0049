package compose

// ServiceState is the run state of a single service as reported by the runtime.
type ServiceState string

const (
	StateCreated    ServiceState = "created"
	StateRunning    ServiceState = "running"
	StatePaused     ServiceState = "paused"
	StateRestarting ServiceState = "restarting"
	StateRemoving   ServiceState = "removing"
	StateExited     ServiceState = "exited"
	StateDead       ServiceState = "dead"

	// StateInactive marks a declared service the runtime has not materialized.
	// It is never produced by parsing runtime output.
	StateInactive ServiceState = "inactive"
)

var knownStates = map[ServiceState]struct{}{
	StateCreated:    {},
	StateRunning:    {},
	StatePaused:     {},
	StateRestarting: {},
	StateRemoving:   {},
	StateExited:     {},
	StateDead:       {},
}

// ParseServiceState maps runtime text to a ServiceState. Unrecognized values
// are rejected rather than defaulted.
func ParseServiceState(value string) (ServiceState, error) {
	state := ServiceState(value)
	if _, ok := knownStates[state]; !ok {
		return "", &ParseError{Input: value, Reason: "unknown service state"}
	}
	return state, nil
}
