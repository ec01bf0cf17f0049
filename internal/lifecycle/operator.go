package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/metrics"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/rs/zerolog"
)

// Operation names a lifecycle action.
type Operation string

const (
	OperationStart   Operation = "start"
	OperationStop    Operation = "stop"
	OperationDestroy Operation = "destroy"
)

// ParseOperation maps a name to an Operation.
func ParseOperation(name string) (Operation, bool) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(name))); op {
	case OperationStart, OperationStop, OperationDestroy:
		return op, true
	}
	return "", false
}

// OperationError reports a failed lifecycle operation.
type OperationError struct {
	Operation      Operation
	DefinitionPath string
	Err            error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.DefinitionPath, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Operator runs lifecycle operations against a stack definition file. It
// holds no state between calls and never retries.
type Operator struct {
	exec    runtime.Executor
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewOperator returns an operator backed by exec. m may be nil.
func NewOperator(logger zerolog.Logger, exec runtime.Executor, m *metrics.Metrics) *Operator {
	return &Operator{
		exec:    exec,
		logger:  logger.With().Str("component", "lifecycle").Logger(),
		metrics: m,
	}
}

// Start brings the stack up detached, removing orphaned containers.
func (o *Operator) Start(ctx context.Context, definitionPath string) error {
	return o.run(ctx, OperationStart, definitionPath, compose.UpArgs(definitionPath))
}

// Stop stops the stack's containers without removing them.
func (o *Operator) Stop(ctx context.Context, definitionPath string) error {
	return o.run(ctx, OperationStop, definitionPath, compose.StopArgs(definitionPath))
}

// Destroy removes the stack's runtime resources. The definition file and its
// directory are left in place.
func (o *Operator) Destroy(ctx context.Context, definitionPath string) error {
	return o.run(ctx, OperationDestroy, definitionPath, compose.DownArgs(definitionPath))
}

// Do dispatches op.
func (o *Operator) Do(ctx context.Context, op Operation, definitionPath string) error {
	switch op {
	case OperationStart:
		return o.Start(ctx, definitionPath)
	case OperationStop:
		return o.Stop(ctx, definitionPath)
	case OperationDestroy:
		return o.Destroy(ctx, definitionPath)
	}
	return fmt.Errorf("unknown operation %q", op)
}

func (o *Operator) run(ctx context.Context, op Operation, definitionPath string, args []string) error {
	if strings.TrimSpace(definitionPath) == "" {
		return &OperationError{Operation: op, DefinitionPath: definitionPath, Err: fmt.Errorf("definition path is required")}
	}

	dir := compose.WorkingDir(definitionPath)

	start := time.Now()
	_, err := o.exec.Run(ctx, dir, args...)
	logger := o.logger.With().Str("operation", string(op)).Str("definition", definitionPath).Dur("duration", time.Since(start)).Logger()

	if err != nil {
		o.metrics.IncLifecycleOperations(string(op), "failure")
		logger.Error().Err(err).Msg("lifecycle operation failed")
		return &OperationError{Operation: op, DefinitionPath: definitionPath, Err: err}
	}

	o.metrics.IncLifecycleOperations(string(op), "success")
	logger.Info().Msg("lifecycle operation completed")
	return nil
}
