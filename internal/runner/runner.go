package runner

import (
	"context"
	"errors"
	"time"

	"github.com/nholik/stackyard/internal/healthcheck"
	"github.com/nholik/stackyard/internal/metrics"
	"github.com/nholik/stackyard/internal/notify"
	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/transition"
	"github.com/rs/zerolog"
)

// Ticker is the minimal interface needed for driving the runner loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Reconciler produces the unified stack view for one cycle.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]reconcile.Stack, error)
}

// Runner periodically reconciles the catalog with the runtime and reports
// aggregate status transitions.
type Runner struct {
	logger        zerolog.Logger
	interval      time.Duration
	tickerFactory func(time.Duration) Ticker
	runOnce       func(context.Context) error
	trigger       <-chan struct{}
	engine        Reconciler
	notifier      notify.Notifier
	metrics       *metrics.Metrics
	tracker       *healthcheck.Tracker
	now           func() time.Time
	previous      transition.Snapshot
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(r *Runner) {
		r.tickerFactory = factory
	}
}

// WithRunOnce overrides the single-cycle execution step.
func WithRunOnce(runOnce func(context.Context) error) Option {
	return func(r *Runner) {
		r.runOnce = runOnce
	}
}

// WithTrigger runs an extra cycle whenever a signal arrives on ch.
func WithTrigger(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.trigger = ch
	}
}

// WithEngine sets the reconciler used by the default RunOnce.
func WithEngine(engine Reconciler) Option {
	return func(r *Runner) {
		r.engine = engine
	}
}

// WithNotifier sets where transitions are delivered.
func WithNotifier(notifier notify.Notifier) Option {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// WithMetrics records cycle results on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracker records completed cycles for the health endpoints.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(r *Runner) {
		r.tracker = tracker
	}
}

// New constructs a Runner with the given logger and watch interval.
func New(logger zerolog.Logger, interval time.Duration, opts ...Option) *Runner {
	r := &Runner{
		logger:   logger.With().Str("component", "runner").Logger(),
		interval: interval,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
		now: time.Now,
	}
	r.runOnce = r.defaultRunOnce

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run starts the main loop and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return errors.New("watch interval must be greater than zero")
	}

	// Run immediately on startup
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial watch cycle failed")
	}

	ticker := r.tickerFactory(r.interval)
	defer ticker.Stop()

	trigger := r.trigger
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case <-ticker.C():
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("watch cycle failed")
			}
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
			r.logger.Debug().Msg("catalog changed; running watch cycle")
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("triggered watch cycle failed")
			}
		}
	}
}

// RunOnce executes a single cycle of the runner.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.runOnce(ctx)
}

func (r *Runner) defaultRunOnce(ctx context.Context) error {
	if r.engine == nil {
		return nil
	}

	start := r.now()
	stacks, err := r.engine.Reconcile(ctx)
	if err != nil {
		r.tracker.RecordFailure(err)
		return wrapCycle("reconcile", err)
	}
	duration := r.now().Sub(start)

	r.recordStacks(stacks)
	r.metrics.ObserveCycleDuration(duration)
	r.metrics.SetLastSuccessfulCycleTimestamp(r.now())
	r.tracker.RecordCycle(duration, len(stacks))

	transitions := transition.Detect(r.previous, stacks)
	r.previous = transition.NewSnapshot(stacks)

	r.logger.Info().
		Int("stacks", len(stacks)).
		Int("transitions", len(transitions)).
		Dur("duration", duration).
		Msg("watch cycle completed")

	if len(transitions) == 0 {
		return nil
	}
	for _, change := range transitions {
		r.metrics.IncTransitions(change.Stack, string(change.CurrentStatus))
		r.logTransition(change)
	}

	if r.notifier == nil {
		return nil
	}
	return wrapCycle("notify", r.notifier.Notify(ctx, transitions))
}

func (r *Runner) recordStacks(stacks []reconcile.Stack) {
	type key struct {
		status  reconcile.AggregateStatus
		control reconcile.ControlLevel
	}
	counts := make(map[key]int)
	for _, stack := range stacks {
		counts[key{stack.Status, stack.Control}]++
	}

	r.metrics.ResetStacks()
	for k, n := range counts {
		r.metrics.SetStacks(string(k.status), string(k.control), n)
	}
}

func (r *Runner) logTransition(change transition.StackTransition) {
	event := r.logger.Info()
	switch change.CurrentStatus {
	case reconcile.StatusStopped, reconcile.StatusInactive:
		event = r.logger.Warn()
	}
	event = event.
		Str("stack", change.Stack).
		Str("previous_status", string(change.PreviousStatus)).
		Str("current_status", string(change.CurrentStatus)).
		Str("control", string(change.Control))
	if change.ServiceChange != nil {
		event = event.Int("running", change.ServiceChange.CurrentRunning).
			Int("total", change.ServiceChange.CurrentTotal).
			Int("running_delta", change.ServiceChange.RunningDelta)
	}
	event.Msg("stack transition detected")
}
