package compose

import (
	"regexp"
	"strconv"
)

// StateCount is the number of services of a stack in one state.
type StateCount struct {
	State ServiceState `json:"state"`
	Count int          `json:"count"`
}

var (
	statusPattern = regexp.MustCompile(`^[a-z]+\(\d+\)(?:, [a-z]+\(\d+\))*$`)
	entryPattern  = regexp.MustCompile(`([a-z]+)\((\d+)\)`)
)

// ParseStatus parses the compact status notation of "compose ls", for example
// "running(2), exited(1)", preserving the order of the entries.
func ParseStatus(text string) ([]StateCount, error) {
	if !statusPattern.MatchString(text) {
		return nil, &ParseError{Input: text, Reason: "status does not match state(count)[, state(count)...]"}
	}

	matches := entryPattern.FindAllStringSubmatch(text, -1)
	counts := make([]StateCount, 0, len(matches))
	for _, match := range matches {
		state, err := ParseServiceState(match[1])
		if err != nil {
			return nil, &ParseError{Input: text, Reason: "unknown service state " + strconv.Quote(match[1])}
		}
		count, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, &ParseError{Input: text, Reason: "invalid count " + strconv.Quote(match[2])}
		}
		counts = append(counts, StateCount{State: state, Count: count})
	}
	return counts, nil
}
