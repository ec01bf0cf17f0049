package status

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/nholik/stackyard/internal/runtime/runtimetest"
	"github.com/rs/zerolog"
)

func TestGetAllStackSummaries(t *testing.T) {
	exec := &runtimetest.Executor{
		RunFn: func(_ context.Context, _ string, args []string) ([]byte, error) {
			if !reflect.DeepEqual(args, compose.ListArgs()) {
				t.Fatalf("unexpected args: %q", args)
			}
			return []byte(`[{"Name":"api","Status":"running(2), exited(1)","ConfigFiles":"/srv/api/docker-compose.yml"},{"Name":"db","Status":"running(1)","ConfigFiles":"/opt/db/compose.yml"}]`), nil
		},
	}

	summaries, err := NewSource(zerolog.Nop(), exec).GetAllStackSummaries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []StackSummary{
		{
			Name:           "api",
			DefinitionPath: "/srv/api/docker-compose.yml",
			Services:       []compose.StateCount{{State: compose.StateRunning, Count: 2}, {State: compose.StateExited, Count: 1}},
		},
		{
			Name:           "db",
			DefinitionPath: "/opt/db/compose.yml",
			Services:       []compose.StateCount{{State: compose.StateRunning, Count: 1}},
		},
	}
	if !reflect.DeepEqual(summaries, want) {
		t.Fatalf("summaries = %+v, want %+v", summaries, want)
	}
	if summaries[0].Total() != 3 {
		t.Fatalf("Total() = %d, want 3", summaries[0].Total())
	}
}

func TestGetAllStackSummaries_MalformedStatusFailsWholeCall(t *testing.T) {
	exec := &runtimetest.Executor{
		RunFn: func(context.Context, string, []string) ([]byte, error) {
			return []byte(`[{"Name":"api","Status":"running(1)","ConfigFiles":"/a"},{"Name":"web","Status":"bogus","ConfigFiles":"/b"}]`), nil
		},
	}

	summaries, err := NewSource(zerolog.Nop(), exec).GetAllStackSummaries(context.Background())
	var parseErr *compose.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if summaries != nil {
		t.Fatalf("expected no partial result, got %+v", summaries)
	}
}

func TestGetAllStackSummaries_RuntimeError(t *testing.T) {
	exec := &runtimetest.Executor{
		RunFn: func(context.Context, string, []string) ([]byte, error) {
			return nil, &runtime.InvocationError{Command: "docker compose ls", ExitCode: 1, Stderr: "daemon down"}
		},
	}

	_, err := NewSource(zerolog.Nop(), exec).GetAllStackSummaries(context.Background())
	var invErr *runtime.InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
}

const apiConfig = `{"name":"api","services":{"web":{"image":"nginx:1.25","ports":[{"target":80,"published":"8080","protocol":"tcp"}]},"worker":{"image":"busybox"},"cache":{"image":"redis:7"}}}`

func detailsExecutor(t *testing.T, ps string) *runtimetest.Executor {
	t.Helper()
	return &runtimetest.Executor{
		RunFn: func(_ context.Context, dir string, args []string) ([]byte, error) {
			if dir != "/srv/api" {
				t.Errorf("unexpected dir %q", dir)
			}
			switch compose.Subcommand(args) {
			case "config":
				return []byte(apiConfig), nil
			case "ps":
				return []byte(ps), nil
			}
			t.Errorf("unexpected args %q", args)
			return nil, nil
		},
	}
}

func TestGetStackServiceDetails(t *testing.T) {
	ps := `{"Name":"api-web-1","Service":"web","State":"running","Image":"nginx:1.25","Publishers":[{"URL":"0.0.0.0","TargetPort":80,"PublishedPort":8080,"Protocol":"tcp"}]}
{"Name":"api-worker-1","Service":"worker","State":"exited","Image":"busybox"}
{"Name":"api-old-1","Service":"old","State":"running","Image":"alpine"}
`
	exec := detailsExecutor(t, ps)

	details, err := NewSource(zerolog.Nop(), exec).GetStackServiceDetails(context.Background(), "/srv/api/docker-compose.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []ServiceDetail{
		{Name: "cache", State: compose.StateInactive, Image: "redis:7"},
		{Name: "web", State: compose.StateRunning, Image: "nginx:1.25", Ports: []compose.Port{{Published: "8080", Target: 80, Protocol: "tcp"}}},
		{Name: "worker", State: compose.StateExited, Image: "busybox"},
	}
	if !reflect.DeepEqual(details, want) {
		t.Fatalf("details = %+v, want %+v", details, want)
	}

	for _, call := range exec.Calls() {
		if !runtimetest.HasArg(call.Args, "/srv/api/docker-compose.yml") {
			t.Fatalf("call %q not scoped to the definition file", call.Args)
		}
	}
}

func TestGetStackServiceDetails_UnknownState(t *testing.T) {
	exec := detailsExecutor(t, `[{"Name":"api-web-1","Service":"web","State":"hibernating"}]`)

	_, err := NewSource(zerolog.Nop(), exec).GetStackServiceDetails(context.Background(), "/srv/api/docker-compose.yml")
	var parseErr *compose.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestGetStackServiceDetails_ConfigFailure(t *testing.T) {
	exec := &runtimetest.Executor{
		RunFn: func(_ context.Context, _ string, args []string) ([]byte, error) {
			if compose.Subcommand(args) == "config" {
				return nil, &runtime.InvocationError{Command: "docker compose config", ExitCode: 15}
			}
			return nil, nil
		},
	}

	_, err := NewSource(zerolog.Nop(), exec).GetStackServiceDetails(context.Background(), "/srv/api/docker-compose.yml")
	var invErr *runtime.InvocationError
	if !errors.As(err, &invErr) || invErr.ExitCode != 15 {
		t.Fatalf("expected InvocationError with exit 15, got %v", err)
	}
}
