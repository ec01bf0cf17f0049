package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/metrics"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/nholik/stackyard/internal/runtime/runtimetest"
	"github.com/rs/zerolog"
)

const definitionPath = "/srv/stacks/api/docker-compose.yml"

func TestOperations(t *testing.T) {
	tests := []struct {
		op   Operation
		want []string
	}{
		{OperationStart, compose.UpArgs(definitionPath)},
		{OperationStop, compose.StopArgs(definitionPath)},
		{OperationDestroy, compose.DownArgs(definitionPath)},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			exec := &runtimetest.Executor{}
			operator := NewOperator(zerolog.Nop(), exec, metrics.New())

			if err := operator.Do(context.Background(), tt.op, definitionPath); err != nil {
				t.Fatalf("%s error: %v", tt.op, err)
			}

			calls := exec.Calls()
			if len(calls) != 1 {
				t.Fatalf("expected exactly one runtime call, got %d", len(calls))
			}
			if calls[0].Dir != "/srv/stacks/api" {
				t.Fatalf("dir = %q", calls[0].Dir)
			}
			if !reflect.DeepEqual(calls[0].Args, tt.want) {
				t.Fatalf("args = %q, want %q", calls[0].Args, tt.want)
			}
		})
	}
}

func TestStopAndDestroyAreDistinct(t *testing.T) {
	stop := compose.Subcommand(compose.StopArgs(definitionPath))
	destroy := compose.Subcommand(compose.DownArgs(definitionPath))
	if stop == destroy {
		t.Fatalf("stop and destroy both map to %q", stop)
	}
}

func TestOperationFailureIsNotRetried(t *testing.T) {
	invErr := &runtime.InvocationError{Command: "docker compose up", ExitCode: 1, Stderr: "pull access denied"}
	exec := &runtimetest.Executor{
		RunFn: func(context.Context, string, []string) ([]byte, error) {
			return nil, invErr
		},
	}
	operator := NewOperator(zerolog.Nop(), exec, nil)

	err := operator.Start(context.Background(), definitionPath)

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
	if opErr.Operation != OperationStart || opErr.DefinitionPath != definitionPath {
		t.Fatalf("unexpected error fields %+v", opErr)
	}
	if !errors.Is(err, invErr) {
		t.Fatal("expected cause to be preserved")
	}
	if len(exec.Calls()) != 1 {
		t.Fatalf("expected one attempt, got %d", len(exec.Calls()))
	}
}

func TestEmptyDefinitionPath(t *testing.T) {
	exec := &runtimetest.Executor{}
	err := NewOperator(zerolog.Nop(), exec, nil).Destroy(context.Background(), " ")
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
	if len(exec.Calls()) != 0 {
		t.Fatal("runtime must not be invoked without a definition path")
	}
}

func TestParseOperation(t *testing.T) {
	for _, name := range []string{"start", "STOP", " destroy "} {
		if _, ok := ParseOperation(name); !ok {
			t.Fatalf("ParseOperation(%q) not recognized", name)
		}
	}
	if _, ok := ParseOperation("restart"); ok {
		t.Fatal("expected restart to be rejected")
	}
}
