package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDaemonProbePingSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_ping" {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		w.Header().Set("API-Version", "1.45")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	t.Cleanup(server.Close)

	probe, err := NewDaemonProbe(server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewDaemonProbe error: %v", err)
	}
	t.Cleanup(func() { _ = probe.Close() })

	if err := probe.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}

func TestDaemonProbePingFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	probe, err := NewDaemonProbe(server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewDaemonProbe error: %v", err)
	}
	t.Cleanup(func() { _ = probe.Close() })

	if err := probe.Ping(context.Background()); err == nil {
		t.Fatal("expected Ping error, got nil")
	}
}

func TestDaemonProbeNilIsNotInitialized(t *testing.T) {
	var probe *DaemonProbe
	if err := probe.Ping(context.Background()); err == nil {
		t.Fatal("expected error from nil probe")
	}
	if err := probe.Close(); err != nil {
		t.Fatalf("Close on nil probe: %v", err)
	}
}
