package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/docker/docker/client"
)

const defaultProbeTimeout = 5 * time.Second

// DaemonProbe checks that the container daemon behind the compose CLI answers.
type DaemonProbe struct {
	api     *client.Client
	timeout time.Duration
}

// NewDaemonProbe builds a probe for host, falling back to DOCKER_HOST and the
// platform default when host is empty.
func NewDaemonProbe(host string, timeout time.Duration) (*DaemonProbe, error) {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
		client.WithTimeout(timeout),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}

	return &DaemonProbe{api: api, timeout: timeout}, nil
}

// Ping validates connectivity to the daemon.
func (p *DaemonProbe) Ping(ctx context.Context) error {
	if p == nil || p.api == nil {
		return errors.New("daemon probe is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.api.Ping(ctx)
	return err
}

// Close releases the underlying HTTP transport.
func (p *DaemonProbe) Close() error {
	if p == nil || p.api == nil {
		return nil
	}
	return p.api.Close()
}
