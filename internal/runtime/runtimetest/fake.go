// Package runtimetest provides in-memory runtime.Executor and runtime.Process
// fakes for tests.
package runtimetest

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/nholik/stackyard/internal/runtime"
)

// Call records one invocation made through an Executor.
type Call struct {
	Dir  string
	Args []string
}

// Executor is a runtime.Executor whose behavior is set per test.
type Executor struct {
	RunFn    func(ctx context.Context, dir string, args []string) ([]byte, error)
	FollowFn func(ctx context.Context, dir string, args []string) (runtime.Process, error)

	mu    sync.Mutex
	calls []Call
}

func (e *Executor) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	e.record(dir, args)
	if e.RunFn == nil {
		return nil, nil
	}
	return e.RunFn(ctx, dir, args)
}

func (e *Executor) Follow(ctx context.Context, dir string, args ...string) (runtime.Process, error) {
	e.record(dir, args)
	if e.FollowFn == nil {
		return nil, errors.New("follow not configured")
	}
	return e.FollowFn(ctx, dir, args)
}

// Calls returns a copy of the recorded invocations.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

func (e *Executor) record(dir string, args []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Dir: dir, Args: append([]string(nil), args...)})
}

// HasArg reports whether args contains arg.
func HasArg(args []string, arg string) bool {
	for _, a := range args {
		if a == arg {
			return true
		}
	}
	return false
}

// Process is a runtime.Process fed by the test through Emit and Exit.
type Process struct {
	reader *io.PipeReader
	writer *io.PipeWriter

	exitOnce     sync.Once
	exited       chan struct{}
	terminations atomic.Int32
}

// NewProcess returns a running fake process.
func NewProcess() *Process {
	r, w := io.Pipe()
	return &Process{reader: r, writer: w, exited: make(chan struct{})}
}

func (p *Process) Stdout() io.Reader {
	return p.reader
}

// Emit writes output; it blocks until the reader consumes it.
func (p *Process) Emit(data string) error {
	_, err := p.writer.Write([]byte(data))
	return err
}

// Exit simulates the process ending on its own.
func (p *Process) Exit() {
	p.exitOnce.Do(func() {
		_ = p.writer.Close()
		close(p.exited)
	})
}

func (p *Process) Terminate() error {
	p.terminations.Add(1)
	p.Exit()
	return nil
}

func (p *Process) Wait() error {
	<-p.exited
	return nil
}

// Terminations returns how many times Terminate was called.
func (p *Process) Terminations() int {
	return int(p.terminations.Load())
}

// Exited is closed once the process has ended.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}
