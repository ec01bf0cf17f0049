package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBinary  = "docker"
	defaultTimeout = 60 * time.Second

	// followWaitDelay bounds how long Wait keeps copying output after the
	// follow process is gone.
	followWaitDelay = 2 * time.Second
)

// Executor runs container runtime commands on behalf of the other components.
type Executor interface {
	// Run executes a one-shot command in dir and returns its standard output.
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
	// Follow starts a long-running command whose lifetime is owned by the caller.
	Follow(ctx context.Context, dir string, args ...string) (Process, error)
}

// Process is a running follow-mode command.
type Process interface {
	Stdout() io.Reader
	// Terminate forcibly stops the process. Terminating an exited process is not an error.
	Terminate() error
	// Wait blocks until the process exits and releases its resources. Safe to call repeatedly.
	Wait() error
}

// Observer receives the outcome of every one-shot invocation. args excludes
// the base arguments.
type Observer func(args []string, duration time.Duration, err error)

// Client invokes the compose CLI as a subprocess.
type Client struct {
	binary   string
	baseArgs []string
	timeout  time.Duration
	logger   zerolog.Logger
	observe  Observer
}

// Option configures a Client.
type Option func(*Client)

// WithBinary overrides the runtime executable.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithBaseArgs replaces the arguments prefixed to every invocation.
func WithBaseArgs(args ...string) Option {
	return func(c *Client) {
		c.baseArgs = append([]string(nil), args...)
	}
}

// WithTimeout bounds every one-shot invocation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithObserver registers a callback for invocation outcomes.
func WithObserver(observe Observer) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// NewClient returns a client that runs "docker compose" by default.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		binary:   defaultBinary,
		baseArgs: []string{"compose"},
		timeout:  defaultTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes a one-shot command and returns stdout. Non-zero exits yield
// *InvocationError and deadline expiry yields *TimeoutError.
func (c *Client) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	argv := c.argv(args)
	command := c.describe(argv)

	cmd := exec.CommandContext(ctx, c.binary, argv...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		err = c.classify(ctx, command, err, stderr.Bytes())
	}
	if c.observe != nil {
		c.observe(args, elapsed, err)
	}

	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}
	event.Str("command", command).Str("dir", dir).Dur("duration", elapsed).Msg("runtime command finished")

	if err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (c *Client) classify(ctx context.Context, command string, err error, stderr []byte) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &TimeoutError{Command: command, Timeout: c.timeout}
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &InvocationError{Command: command, ExitCode: exitErr.ExitCode(), Stderr: excerpt(stderr)}
	}
	return &InvocationError{Command: command, ExitCode: -1, Stderr: excerpt(stderr), Err: err}
}

// Follow starts a command that runs until the caller terminates it. The
// context only guards the start; it does not bound the process lifetime.
func (c *Client) Follow(ctx context.Context, dir string, args ...string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	argv := c.argv(args)
	command := c.describe(argv)

	cmd := exec.Command(c.binary, argv...)
	cmd.Dir = dir
	cmd.WaitDelay = followWaitDelay
	setProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &InvocationError{Command: command, ExitCode: -1, Err: err}
	}
	stderr := &cappedBuffer{limit: stderrExcerptLimit}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, &InvocationError{Command: command, ExitCode: -1, Err: err}
	}

	c.logger.Debug().Str("command", command).Str("dir", dir).Int("pid", cmd.Process.Pid).Msg("follow process started")

	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr, command: command}, nil
}

func (c *Client) argv(args []string) []string {
	argv := make([]string, 0, len(c.baseArgs)+len(args))
	argv = append(argv, c.baseArgs...)
	return append(argv, args...)
}

func (c *Client) describe(argv []string) string {
	return strings.TrimSpace(c.binary + " " + strings.Join(argv, " "))
}

type execProcess struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  *cappedBuffer
	command string

	waitOnce sync.Once
	waitErr  error
}

func (p *execProcess) Stdout() io.Reader {
	return p.stdout
}

// Terminate kills the whole process group, so children forked by the
// runtime binary go down with it.
func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := killProcessGroup(p.cmd.Process.Pid)
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminate %s: %w", p.command, err)
	}
	return nil
}

func (p *execProcess) Wait() error {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		if err == nil {
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.waitErr = &InvocationError{
				Command:  p.command,
				ExitCode: exitErr.ExitCode(),
				Stderr:   excerpt(p.stderr.Bytes()),
				Err:      err,
			}
			return
		}
		p.waitErr = err
	})
	return p.waitErr
}

// cappedBuffer keeps the first limit bytes written to it.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
