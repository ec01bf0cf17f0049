package logstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/metrics"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/rs/zerolog"
)

const (
	defaultTail      = 100
	defaultChunkSize = 4096
	eventBuffer      = 16
)

// ErrShuttingDown is returned by Open once Shutdown has been called.
var ErrShuttingDown = errors.New("log stream supervisor is shutting down")

// Supervisor owns every open log stream.
type Supervisor struct {
	exec      runtime.Executor
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	tail      int
	chunkSize int

	mu           sync.Mutex
	streams      map[string]*Stream
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTail sets the backfill line count.
func WithTail(lines int) Option {
	return func(s *Supervisor) {
		if lines > 0 {
			s.tail = lines
		}
	}
}

// WithChunkSize sets the maximum size of one log event.
func WithChunkSize(size int) Option {
	return func(s *Supervisor) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithMetrics records stream counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// NewSupervisor returns a supervisor that spawns log processes through exec.
func NewSupervisor(logger zerolog.Logger, exec runtime.Executor, opts ...Option) *Supervisor {
	s := &Supervisor{
		exec:      exec,
		logger:    logger.With().Str("component", "logstream").Logger(),
		tail:      defaultTail,
		chunkSize: defaultChunkSize,
		streams:   make(map[string]*Stream),
		shutdown:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backfill returns the most recent log lines of a stack in one shot.
func (s *Supervisor) Backfill(ctx context.Context, definitionPath string) (string, error) {
	out, err := s.exec.Run(ctx, compose.WorkingDir(definitionPath), compose.LogsArgs(definitionPath, s.tail)...)
	if err != nil {
		return "", fmt.Errorf("log backfill: %w", err)
	}
	return string(out), nil
}

// Open starts following the logs of a stack. The stream is torn down when
// ctx is done (viewer gone), when the process exits, or on Shutdown,
// whichever happens first.
func (s *Supervisor) Open(ctx context.Context, stack, definitionPath string) (*Stream, error) {
	select {
	case <-s.shutdown:
		return nil, ErrShuttingDown
	default:
	}

	id := uuid.NewString()
	stream := &Stream{
		id:       id,
		stack:    stack,
		logger:   s.logger.With().Str("stack", stack).Str("stream_id", id).Logger(),
		sup:      s,
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
		closed:   make(chan struct{}),
		openedAt: time.Now(),
	}
	stream.state.Store(int32(StateStarting))

	proc, err := s.exec.Follow(ctx, compose.WorkingDir(definitionPath), compose.FollowArgs(definitionPath)...)
	if err != nil {
		return nil, fmt.Errorf("open log stream: %w", err)
	}
	stream.proc = proc

	if err := s.register(stream); err != nil {
		_ = proc.Terminate()
		_ = proc.Wait()
		return nil, err
	}

	stream.state.Store(int32(StateStreaming))
	go stream.pump(s.chunkSize)
	go stream.watch(ctx, s.shutdown)

	stream.logger.Info().Str("definition", definitionPath).Msg("log stream opened")
	return stream, nil
}

// Active returns the number of open streams.
func (s *Supervisor) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Shutdown closes every open stream and rejects new ones. It waits for
// teardown to finish or ctx to be done.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})
	open := make([]*Stream, 0, len(s.streams))
	for _, stream := range s.streams {
		open = append(open, stream)
	}
	s.mu.Unlock()

	s.logger.Info().Int("streams", len(open)).Msg("closing log streams")

	for _, stream := range open {
		select {
		case <-stream.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Supervisor) register(stream *Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.shutdown:
		return ErrShuttingDown
	default:
	}

	s.streams[stream.id] = stream
	s.metrics.SetLogStreamsActive(len(s.streams))
	return nil
}

func (s *Supervisor) remove(stream *Stream, reason CloseReason) {
	s.mu.Lock()
	delete(s.streams, stream.id)
	active := len(s.streams)
	s.mu.Unlock()

	s.metrics.SetLogStreamsActive(active)
	s.metrics.IncLogStreamsClosed(string(reason))
}
