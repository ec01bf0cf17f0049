package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/transition"
	"github.com/rs/zerolog"
)

func TestWebhookNotifierTemplateRendering(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, `{"first":"{{ (index .Transitions 0).Stack }}","count":{{ len .Transitions }}}`)
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}

	transitions := []transition.StackTransition{
		{Stack: "alpha", CurrentStatus: reconcile.StatusStopped},
	}

	if err := notifier.Notify(context.Background(), transitions); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if !strings.Contains(body, `"first":"alpha"`) {
		t.Fatalf("expected stack in payload, got %s", body)
	}
	if !strings.Contains(body, `"count":1`) {
		t.Fatalf("expected count in payload, got %s", body)
	}
}

func TestWebhookNotifierRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&calls, 1)
		if count <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}
	notifier.poster.timing.backoffInitial = time.Millisecond
	notifier.poster.timing.backoffMax = 2 * time.Millisecond
	notifier.poster.timing.backoffMaxElapsed = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := notifier.Notify(ctx, []transition.StackTransition{{Stack: "api", CurrentStatus: reconcile.StatusStopped}}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestWebhookNotifierInvalidTemplate(t *testing.T) {
	_, err := NewWebhookNotifier(zerolog.Nop(), "http://example.com", "{{")
	if err == nil {
		t.Fatalf("expected template error")
	}
}

func TestWebhookNotifierDefaultTemplate(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}
	notifier.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	transitions := []transition.StackTransition{{
		Stack:          "web",
		PreviousStatus: reconcile.StatusActive,
		CurrentStatus:  reconcile.StatusTransitioning,
		Control:        reconcile.ControlFull,
	}}
	if err := notifier.Notify(context.Background(), transitions); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	var decoded struct {
		GeneratedAt string                       `json:"generatedAt"`
		Transitions []transition.StackTransition `json:"transitions"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("payload is not json: %v (%s)", err, body)
	}
	if decoded.GeneratedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected generatedAt: %s", decoded.GeneratedAt)
	}
	if len(decoded.Transitions) != 1 || decoded.Transitions[0].CurrentStatus != reconcile.StatusTransitioning {
		t.Fatalf("unexpected transitions: %+v", decoded.Transitions)
	}
}

func TestWebhookNotifierDisabledWithoutURL(t *testing.T) {
	notifier, err := NewWebhookNotifier(zerolog.Nop(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier != nil {
		t.Fatalf("expected nil notifier")
	}
	if err := notifier.Notify(context.Background(), makeTransitions(1)); err != nil {
		t.Fatalf("nil notifier should be a no-op, got %v", err)
	}
}
