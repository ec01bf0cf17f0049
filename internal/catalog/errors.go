package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no managed definition exists for a name.
	ErrNotFound = errors.New("stack definition not found")
	// ErrNameTaken is returned when a directory already exists for a name.
	ErrNameTaken = errors.New("stack name already taken")
	// ErrInvalidName is returned for names that cannot be a single directory entry.
	ErrInvalidName = errors.New("invalid stack name")
)

// FilesystemError wraps an I/O failure against the catalog root.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
