package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

const stderrExcerptLimit = 1024

// InvocationError reports a runtime command that exited non-zero or could not be started.
type InvocationError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvocationError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: exit code %d", e.Command, e.ExitCode)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a one-shot runtime command that outlived its deadline.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s: timed out after %s", e.Command, e.Timeout)
	}
	return fmt.Sprintf("%s: deadline exceeded", e.Command)
}

// ErrorKind classifies err for metrics labels.
func ErrorKind(err error) string {
	var (
		timeoutErr *TimeoutError
		invErr     *InvocationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &invErr):
		return "invocation"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

func excerpt(stderr []byte) string {
	if len(stderr) > stderrExcerptLimit {
		stderr = stderr[:stderrExcerptLimit]
	}
	return string(bytes.TrimSpace(trimPartialRune(stderr)))
}

// trimPartialRune drops a multi-byte sequence cut short at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			return b
		}
	}
	return b
}
