//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/nholik/stackyard/internal/catalog"
	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/lifecycle"
	"github.com/nholik/stackyard/internal/logging"
	"github.com/nholik/stackyard/internal/logstream"
	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/nholik/stackyard/internal/status"
)

const definition = `services:
  ticker:
    image: busybox:1.36
    command: ["sh", "-c", "i=0; while true; do echo tick $$i; i=$$((i+1)); sleep 1; done"]
`

// TestIntegrationComposeLifecycle drives a real stack through start, status,
// logs, stop and destroy using the docker compose CLI.
//
// Prerequisites:
//   - Docker daemon running with the compose plugin installed
//   - busybox image pullable
//
// Run with: go test -tags=integration -v ./test/integration/...
func TestIntegrationComposeLifecycle(t *testing.T) {
	binary := getEnv("TEST_RUNTIME_BINARY", "docker")
	if _, err := exec.LookPath(binary); err != nil {
		t.Skipf("%s not found: %v", binary, err)
	}

	logger := logging.NewWithLevel(getEnv("TEST_LOG_LEVEL", "warn"))
	client := runtime.NewClient(logger, runtime.WithBinary(binary), runtime.WithTimeout(2*time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := client.Run(ctx, "", compose.VersionArgs()...); err != nil {
		t.Skipf("compose plugin not available: %v", err)
	}
	probe, err := runtime.NewDaemonProbe("", 5*time.Second)
	if err != nil {
		t.Fatalf("create daemon probe: %v", err)
	}
	defer probe.Close()
	if err := probe.Ping(ctx); err != nil {
		t.Skipf("docker daemon not reachable: %v", err)
	}

	cat, err := catalog.New(logger, t.TempDir(), "")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	name := fmt.Sprintf("sy-it-%d", time.Now().UnixNano()%1_000_000)
	def, err := cat.Create(name, []byte(definition))
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}

	source := status.NewSource(logger, client)
	engine := reconcile.NewEngine(logger, cat, source)
	operator := lifecycle.NewOperator(logger, client, nil)
	t.Cleanup(func() {
		_ = operator.Destroy(context.Background(), def.Path)
	})

	t.Run("InactiveBeforeStart", func(t *testing.T) {
		stack, err := engine.Stack(ctx, name)
		if err != nil {
			t.Fatalf("stack: %v", err)
		}
		if stack.Status != reconcile.StatusInactive || stack.Control != reconcile.ControlFull {
			t.Fatalf("unexpected stack before start: %+v", stack)
		}
	})

	t.Run("Start", func(t *testing.T) {
		if err := operator.Start(ctx, def.Path); err != nil {
			t.Fatalf("start: %v", err)
		}
		stack := waitForStatus(t, ctx, engine, name, reconcile.StatusActive)
		if stack.DefinitionPath != def.Path {
			t.Fatalf("expected definition path %s, got %s", def.Path, stack.DefinitionPath)
		}

		details, err := source.GetStackServiceDetails(ctx, def.Path)
		if err != nil {
			t.Fatalf("service details: %v", err)
		}
		if len(details) != 1 || details[0].Name != "ticker" || details[0].State != compose.StateRunning {
			t.Fatalf("unexpected details: %+v", details)
		}
	})

	t.Run("Logs", func(t *testing.T) {
		sup := logstream.NewSupervisor(logger, client, logstream.WithTail(5))
		backfill, err := sup.Backfill(ctx, def.Path)
		if err != nil {
			t.Fatalf("backfill: %v", err)
		}
		t.Logf("backfill: %q", backfill)

		viewerCtx, leave := context.WithCancel(ctx)
		stream, err := sup.Open(viewerCtx, name, def.Path)
		if err != nil {
			t.Fatalf("open stream: %v", err)
		}

		select {
		case event := <-stream.Events():
			if !strings.Contains(event.Data, "tick") {
				t.Fatalf("unexpected log chunk %q", event.Data)
			}
		case <-time.After(30 * time.Second):
			t.Fatalf("no log output within 30s")
		}

		leave()
		select {
		case <-stream.Done():
		case <-time.After(10 * time.Second):
			t.Fatalf("stream not closed after the viewer left")
		}
		if stream.Reason() != logstream.ReasonViewerGone {
			t.Fatalf("unexpected close reason %s", stream.Reason())
		}
		if err := sup.Shutdown(ctx); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	})

	t.Run("Stop", func(t *testing.T) {
		if err := operator.Stop(ctx, def.Path); err != nil {
			t.Fatalf("stop: %v", err)
		}
		waitForStatus(t, ctx, engine, name, reconcile.StatusStopped)
	})

	t.Run("Destroy", func(t *testing.T) {
		if err := operator.Destroy(ctx, def.Path); err != nil {
			t.Fatalf("destroy: %v", err)
		}
		waitForStatus(t, ctx, engine, name, reconcile.StatusInactive)
	})

	t.Run("UnknownStackFails", func(t *testing.T) {
		_, err := engine.Stack(ctx, name+"-missing")
		if !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func waitForStatus(t *testing.T, ctx context.Context, engine *reconcile.Engine, name string, want reconcile.AggregateStatus) reconcile.Stack {
	t.Helper()
	deadline := time.Now().Add(60 * time.Second)
	for {
		stack, err := engine.Stack(ctx, name)
		if err != nil {
			t.Fatalf("stack: %v", err)
		}
		if stack.Status == want {
			return stack
		}
		if time.Now().After(deadline) {
			t.Fatalf("stack %s did not reach %s, last %+v", name, want, stack)
		}
		time.Sleep(time.Second)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
