//go:build unix

package runtime

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newUnixPingServer(t *testing.T) string {
	t.Helper()

	// Socket paths are length limited, so avoid the long t.TempDir names.
	dir, err := os.MkdirTemp("", "sy")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	socket := filepath.Join(dir, "docker.sock")
	listener, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen on %s: %v", socket, err)
	}

	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_ping" {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		w.Header().Set("API-Version", "1.45")
		_, _ = w.Write([]byte("OK"))
	}))
	_ = server.Listener.Close()
	server.Listener = listener
	server.Start()
	t.Cleanup(server.Close)

	return "unix://" + socket
}

func TestDaemonProbePingUnixSocket(t *testing.T) {
	host := newUnixPingServer(t)

	probe, err := NewDaemonProbe(host, 2*time.Second)
	if err != nil {
		t.Fatalf("NewDaemonProbe error: %v", err)
	}
	t.Cleanup(func() { _ = probe.Close() })

	if err := probe.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}

func TestDaemonProbePingDockerHostEnv(t *testing.T) {
	t.Setenv("DOCKER_HOST", newUnixPingServer(t))

	probe, err := NewDaemonProbe("", 2*time.Second)
	if err != nil {
		t.Fatalf("NewDaemonProbe error: %v", err)
	}
	t.Cleanup(func() { _ = probe.Close() })

	if err := probe.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}
