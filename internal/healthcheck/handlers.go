package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/runtime"
)

const (
	statusOK          = "ok"
	statusUnavailable = "unavailable"
)

// Pinger checks that the container daemon answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LivenessResponse is the /healthz body.
type LivenessResponse struct {
	Status         string `json:"status"`
	RuntimeVersion string `json:"runtime_version,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Status string   `json:"status"`
	Daemon string   `json:"daemon"`
	Cycle  Snapshot `json:"cycle"`
	Error  string   `json:"error,omitempty"`
}

// HealthHandler serves /healthz by asking the runtime CLI for its version.
func HealthHandler(exec runtime.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := exec.Run(r.Context(), "", compose.VersionArgs()...)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, LivenessResponse{Status: statusUnavailable, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, LivenessResponse{Status: statusOK, RuntimeVersion: strings.TrimSpace(string(out))})
	}
}

// ReadyHandler serves /readyz. The daemon must answer a ping and, once a
// watch cycle has completed, the last one must be within 2x the interval.
func ReadyHandler(tracker *Tracker, probe Pinger, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ReadinessResponse{Status: statusOK, Daemon: statusOK, Cycle: tracker.Snapshot()}
		status := http.StatusOK

		if probe != nil {
			if err := probe.Ping(r.Context()); err != nil {
				resp.Status = statusUnavailable
				resp.Daemon = statusUnavailable
				resp.Error = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		if tracker.Ready() && !tracker.Healthy(time.Now().UTC(), interval) {
			resp.Status = statusUnavailable
			if resp.Error == "" {
				resp.Error = "watch loop is stale"
			}
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
