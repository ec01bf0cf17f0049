package runner

import "fmt"

// CycleError captures a failed stage of one watch cycle. It never stops the loop.
type CycleError struct {
	Stage string
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

func wrapCycle(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &CycleError{Stage: stage, Err: err}
}
