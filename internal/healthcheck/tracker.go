package healthcheck

import (
	"sync"
	"time"
)

// Snapshot describes the latest watch cycle.
type Snapshot struct {
	LastCycleTime       *time.Time `json:"last_cycle_time"`
	CycleDurationMS     int64      `json:"cycle_duration_ms"`
	StacksReconciled    int        `json:"stacks_reconciled"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
}

// Tracker records watch cycle outcomes for the readiness endpoint.
type Tracker struct {
	mu                  sync.RWMutex
	now                 func() time.Time
	lastCycle           time.Time
	cycleDuration       time.Duration
	stacksReconciled    int
	consecutiveFailures int
	lastError           string
	ready               bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// RecordCycle marks a successful cycle and clears the failure streak.
func (t *Tracker) RecordCycle(duration time.Duration, stacksReconciled int) {
	if t == nil {
		return
	}
	now := t.now().UTC()
	t.mu.Lock()
	t.lastCycle = now
	t.cycleDuration = duration
	t.stacksReconciled = stacksReconciled
	t.consecutiveFailures = 0
	t.lastError = ""
	t.ready = true
	t.mu.Unlock()
}

// RecordFailure notes a failed cycle. The last successful cycle time is kept.
func (t *Tracker) RecordFailure(err error) {
	if t == nil || err == nil {
		return
	}
	t.mu.Lock()
	t.consecutiveFailures++
	t.lastError = err.Error()
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastCycle.IsZero() {
		value := t.lastCycle
		last = &value
	}
	return Snapshot{
		LastCycleTime:       last,
		CycleDurationMS:     int64(t.cycleDuration / time.Millisecond),
		StacksReconciled:    t.stacksReconciled,
		ConsecutiveFailures: t.consecutiveFailures,
		LastError:           t.lastError,
	}
}

// Ready reports whether at least one successful cycle has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last successful cycle completed within 2x the
// watch interval.
func (t *Tracker) Healthy(now time.Time, interval time.Duration) bool {
	if t == nil || interval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastCycle.IsZero() {
		return false
	}
	return now.Sub(t.lastCycle) <= 2*interval
}
