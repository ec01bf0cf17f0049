package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/nholik/stackyard/internal/catalog"
	"github.com/nholik/stackyard/internal/metrics"
	"github.com/nholik/stackyard/internal/status"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sources named in Error.
const (
	SourceCatalog = "catalog"
	SourceRuntime = "runtime"
)

// Error wraps a failure of one of the reconciliation inputs.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reconcile %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DefinitionLister lists managed stack definitions.
type DefinitionLister interface {
	List(ctx context.Context) ([]catalog.Definition, error)
}

// SummarySource reports the stacks known to the runtime.
type SummarySource interface {
	GetAllStackSummaries(ctx context.Context) ([]status.StackSummary, error)
}

// Engine reads both sources fresh on every call and merges them.
type Engine struct {
	definitions DefinitionLister
	summaries   SummarySource
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMetrics records dropped duplicates on m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine returns an engine over the given sources.
func NewEngine(logger zerolog.Logger, definitions DefinitionLister, summaries SummarySource, opts ...EngineOption) *Engine {
	e := &Engine{
		definitions: definitions,
		summaries:   summaries,
		logger:      logger.With().Str("component", "reconcile").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile fetches both sources concurrently and returns the merged view.
// A failure of either source fails the whole call with *Error.
func (e *Engine) Reconcile(ctx context.Context) ([]Stack, error) {
	start := time.Now()

	var (
		definitions []catalog.Definition
		summaries   []status.StackSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		definitions, err = e.definitions.List(gctx)
		if err != nil {
			return &Error{Source: SourceCatalog, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		summaries, err = e.summaries.GetAllStackSummaries(gctx)
		if err != nil {
			return &Error{Source: SourceRuntime, Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stacks, dropped := Reconcile(definitions, summaries)
	for _, d := range dropped {
		e.logger.Warn().
			Str("stack", d.Summary.Name).
			Str("kept_path", d.KeptPath).
			Str("dropped_path", d.Summary.DefinitionPath).
			Msg("dropping runtime stack that shares a name with an emitted stack")
	}
	e.metrics.AddReconcileDropped(len(dropped))

	e.logger.Debug().
		Int("managed", len(definitions)).
		Int("runtime", len(summaries)).
		Int("stacks", len(stacks)).
		Dur("duration", time.Since(start)).
		Msg("reconciled stacks")

	return stacks, nil
}

// Stack returns the reconciled entry for name, managed or not.
func (e *Engine) Stack(ctx context.Context, name string) (Stack, error) {
	stacks, err := e.Reconcile(ctx)
	if err != nil {
		return Stack{}, err
	}
	for _, stack := range stacks {
		if stack.Name == name {
			return stack, nil
		}
	}
	return Stack{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, name)
}
