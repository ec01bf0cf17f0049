package coordinator

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/config"
	"github.com/nholik/stackyard/internal/metrics"
	"github.com/nholik/stackyard/internal/notify"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/nholik/stackyard/internal/runtime/runtimetest"
	"github.com/rs/zerolog"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StacksDir:      t.TempDir(),
		DefinitionFile: "docker-compose.yml",
		RuntimeBinary:  "docker",
		RuntimeTimeout: time.Second,
		LogTail:        10,
		HTTPAddr:       "127.0.0.1:0",
		WatchInterval:  50 * time.Millisecond,
	}
}

func fakeRuntime() *runtimetest.Executor {
	return &runtimetest.Executor{
		RunFn: func(_ context.Context, _ string, args []string) ([]byte, error) {
			if compose.Subcommand(args) == "ls" {
				return []byte(`[]`), nil
			}
			return nil, nil
		},
	}
}

func TestNew_WiresComponents(t *testing.T) {
	c, err := New(zerolog.Nop(), testConfig(t), fakeRuntime())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if c.Engine == nil || c.Operator == nil || c.Logs == nil || c.Deployer == nil || c.Status == nil {
		t.Fatalf("expected every component to be wired: %+v", c)
	}

	stacks, err := c.Engine.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(stacks) != 0 {
		t.Fatalf("expected an empty view, got %+v", stacks)
	}
}

func TestBuildNotifier(t *testing.T) {
	cfg := testConfig(t)

	notifier, err := buildNotifier(zerolog.Nop(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := notifier.(*notify.MultiNotifier); !ok {
		t.Fatalf("expected multi notifier, got %T", notifier)
	}

	cfg.DryRun = true
	notifier, err = buildNotifier(zerolog.Nop(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := notifier.(*notify.DryRunNotifier); !ok {
		t.Fatalf("expected dry-run notifier, got %T", notifier)
	}

	cfg.WebhookURL = "https://alerts.example.com/hook"
	cfg.WebhookTemplate = "{{"
	if _, err := buildNotifier(zerolog.Nop(), cfg); err == nil {
		t.Fatalf("expected template error")
	}
}

func TestObserveRecordsMetrics(t *testing.T) {
	m := metrics.New()
	observe := Observe(m)

	observe([]string{"--file", "/srv/a/docker-compose.yml", "ps", "--all"}, 20*time.Millisecond, nil)
	observe([]string{"ls"}, time.Second, &runtime.TimeoutError{Command: "docker compose ls", Timeout: time.Second})
	observe([]string{"up"}, time.Millisecond, errors.New("boom"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`stackyard_runtime_command_duration_seconds_count{command="ps"} 1`,
		`stackyard_runtime_errors_total{kind="timeout"} 1`,
		`stackyard_runtime_errors_total{kind="other"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, out)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	c, err := New(zerolog.Nop(), testConfig(t), fakeRuntime())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("coordinator did not stop")
	}

	if !c.Tracker.Ready() {
		t.Fatalf("expected at least one watch cycle to complete")
	}
}
