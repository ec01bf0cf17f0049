//go:build unix

package logstream

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nholik/stackyard/internal/runtime"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newForkingSupervisor runs a real subprocess in place of the compose CLI.
// The script leaves a child running, the way the compose plugin does.
func newForkingSupervisor(t *testing.T) (*Supervisor, string) {
	t.Helper()

	dir := t.TempDir()
	script := filepath.Join(dir, "follow.sh")
	require.NoError(t, os.WriteFile(script, []byte("sleep 60 &\necho started\nwait\n"), 0o644))

	client := runtime.NewClient(zerolog.Nop(), runtime.WithBinary("sh"), runtime.WithBaseArgs(script))
	return NewSupervisor(zerolog.Nop(), client), filepath.Join(dir, "docker-compose.yml")
}

func TestRealProcess_ViewerDisconnectClosesStream(t *testing.T) {
	sup, definition := newForkingSupervisor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := sup.Open(ctx, "api", definition)
	require.NoError(t, err)
	assert.Equal(t, "started\n", nextEvent(t, stream).Data)

	cancel()
	waitClosed(t, stream)

	assert.Equal(t, ReasonViewerGone, stream.Reason())
	assert.Equal(t, StateClosed, stream.State())
	assert.Zero(t, sup.Active())
}

func TestRealProcess_ShutdownReturnsPromptly(t *testing.T) {
	sup, definition := newForkingSupervisor(t)

	stream, err := sup.Open(context.Background(), "api", definition)
	require.NoError(t, err)
	nextEvent(t, stream)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sup.Shutdown(ctx))

	waitClosed(t, stream)
	assert.Equal(t, ReasonShutdown, stream.Reason())
}
