package compose

import "fmt"

const parseInputExcerpt = 256

// ParseError reports runtime output that does not match the expected
// machine-readable shape. Input keeps the raw text that failed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	input := e.Input
	if len(input) > parseInputExcerpt {
		input = input[:parseInputExcerpt] + "..."
	}
	return fmt.Sprintf("parse runtime output %q: %s", input, e.Reason)
}
