package logstream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nholik/stackyard/internal/runtime"
	"github.com/rs/zerolog"
)

// State is the lifecycle phase of a stream.
type State int32

const (
	StateStarting State = iota
	StateStreaming
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// CloseReason records which trigger ended a stream.
type CloseReason string

const (
	ReasonViewerGone    CloseReason = "viewer_gone"
	ReasonProcessExited CloseReason = "process_exited"
	ReasonShutdown      CloseReason = "server_shutdown"
)

// Event is one chunk of log output. Chunks need not end on line boundaries.
type Event struct {
	Data string `json:"data"`
}

// Stream forwards the output of one follow-mode log process to one viewer.
type Stream struct {
	id     string
	stack  string
	proc   runtime.Process
	logger zerolog.Logger
	sup    *Supervisor

	events chan Event
	done   chan struct{}
	exited chan struct{}
	closed chan struct{}

	state    atomic.Int32
	once     sync.Once
	reason   CloseReason
	openedAt time.Time
}

// ID returns the stream identifier.
func (s *Stream) ID() string {
	return s.id
}

// Stack returns the name of the stack being followed.
func (s *Stream) Stack() string {
	return s.stack
}

// Events delivers log chunks in production order. It is closed once the
// process output ends or the stream is torn down.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Done is closed after teardown has completed.
func (s *Stream) Done() <-chan struct{} {
	return s.closed
}

// State returns the current phase.
func (s *Stream) State() State {
	return State(s.state.Load())
}

// Reason returns the trigger that closed the stream. It is empty until Done is closed.
func (s *Stream) Reason() CloseReason {
	select {
	case <-s.closed:
		return s.reason
	default:
		return ""
	}
}

// Close tears the stream down as if the viewer disconnected. Safe to call
// repeatedly and concurrently with the other triggers.
func (s *Stream) Close() {
	s.teardown(ReasonViewerGone)
	<-s.closed
}

func (s *Stream) pump(chunkSize int) {
	defer close(s.events)
	defer close(s.exited)

	buf := make([]byte, chunkSize)
	stdout := s.proc.Stdout()
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			select {
			case s.events <- Event{Data: string(buf[:n])}:
			case <-s.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug().Err(err).Msg("log output read ended")
			}
			return
		}
	}
}

func (s *Stream) watch(ctx context.Context, shutdown <-chan struct{}) {
	var reason CloseReason
	select {
	case <-ctx.Done():
		reason = ReasonViewerGone
	case <-shutdown:
		reason = ReasonShutdown
	case <-s.exited:
		reason = ReasonProcessExited
	case <-s.done:
		return
	}
	s.teardown(reason)
}

// teardown is the single transition to Draining and Closed. The first
// trigger wins; later triggers are no-ops.
func (s *Stream) teardown(reason CloseReason) {
	s.once.Do(func() {
		s.reason = reason
		s.state.Store(int32(StateDraining))
		close(s.done)

		if err := s.proc.Terminate(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to terminate log process")
		}
		if err := s.proc.Wait(); err != nil && reason != ReasonProcessExited {
			s.logger.Debug().Err(err).Msg("log process ended")
		}

		s.state.Store(int32(StateClosed))
		s.sup.remove(s, reason)
		s.logger.Info().
			Str("reason", string(reason)).
			Dur("duration", time.Since(s.openedAt)).
			Msg("log stream closed")
		close(s.closed)
	})
}
