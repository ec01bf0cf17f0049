package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nholik/stackyard/internal/catalog"
	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/config"
	"github.com/nholik/stackyard/internal/deploy"
	"github.com/nholik/stackyard/internal/healthcheck"
	"github.com/nholik/stackyard/internal/lifecycle"
	"github.com/nholik/stackyard/internal/logstream"
	"github.com/nholik/stackyard/internal/metrics"
	"github.com/nholik/stackyard/internal/notify"
	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/runner"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/nholik/stackyard/internal/server"
	"github.com/nholik/stackyard/internal/status"
	"github.com/rs/zerolog"
)

// Coordinator owns every component built from one Config and runs the
// long-lived ones together.
type Coordinator struct {
	logger zerolog.Logger
	cfg    config.Config

	Metrics    *metrics.Metrics
	Runtime    runtime.Executor
	Catalog    *catalog.Catalog
	Status     *status.Source
	Engine     *reconcile.Engine
	Operator   *lifecycle.Operator
	Logs       *logstream.Supervisor
	Deployer   *deploy.Deployer
	Tracker    *healthcheck.Tracker
	Notifier   notify.Notifier
	probe      *runtime.DaemonProbe
	probeError error
}

// New wires the components described by cfg. exec replaces the runtime
// client when non-nil.
func New(logger zerolog.Logger, cfg config.Config, exec runtime.Executor) (*Coordinator, error) {
	m := metrics.New()

	if exec == nil {
		exec = runtime.NewClient(logger,
			runtime.WithBinary(cfg.RuntimeBinary),
			runtime.WithTimeout(cfg.RuntimeTimeout),
			runtime.WithObserver(Observe(m)),
		)
	}

	cat, err := catalog.New(logger, cfg.StacksDir, cfg.DefinitionFile)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	source := status.NewSource(logger, exec)
	notifier, err := buildNotifier(logger, cfg)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		logger:   logger,
		cfg:      cfg,
		Metrics:  m,
		Runtime:  exec,
		Catalog:  cat,
		Status:   source,
		Engine:   reconcile.NewEngine(logger, cat, source, reconcile.WithMetrics(m)),
		Operator: lifecycle.NewOperator(logger, exec, m),
		Logs:     logstream.NewSupervisor(logger, exec, logstream.WithTail(cfg.LogTail), logstream.WithMetrics(m)),
		Deployer: deploy.NewDeployer(logger, cat),
		Tracker:  healthcheck.NewTracker(),
		Notifier: notifier,
	}

	// The probe is only needed by serve; a failure here degrades readiness
	// instead of blocking the CLI commands.
	c.probe, c.probeError = runtime.NewDaemonProbe(cfg.DockerHost, 0)

	return c, nil
}

// Observe returns a runtime observer that records command metrics on m.
func Observe(m *metrics.Metrics) runtime.Observer {
	return func(args []string, duration time.Duration, err error) {
		m.ObserveRuntimeCommand(compose.Subcommand(args), duration)
		if kind := runtime.ErrorKind(err); kind != "" {
			m.IncRuntimeErrors(kind)
		}
	}
}

func buildNotifier(logger zerolog.Logger, cfg config.Config) (notify.Notifier, error) {
	webhook, err := notify.NewWebhookNotifier(logger, cfg.WebhookURL, cfg.WebhookTemplate)
	if err != nil {
		return nil, err
	}

	notifiers := []notify.Notifier{notify.NewSlackNotifier(logger, cfg.SlackWebhookURL)}
	if webhook != nil {
		notifiers = append(notifiers, webhook)
	}

	var notifier notify.Notifier = notify.NewMultiNotifier(notifiers...)
	if cfg.DryRun {
		logger.Info().Msg("dry run enabled; notifications are logged only")
		notifier = notify.NewDryRunNotifier(logger, notifier)
	}
	return notifier, nil
}

// Run starts the catalog watch, the watch loop and the HTTP server, and
// blocks until ctx is canceled or the server fails.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.Close()

	if c.probeError != nil {
		c.logger.Warn().Err(c.probeError).Msg("docker daemon probe unavailable; readiness will fail")
	}

	opts := []runner.Option{
		runner.WithEngine(c.Engine),
		runner.WithNotifier(c.Notifier),
		runner.WithMetrics(c.Metrics),
		runner.WithTracker(c.Tracker),
	}
	trigger, err := c.Catalog.Watch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("root", c.Catalog.Root()).Msg("catalog watch unavailable; relying on the interval")
	} else {
		opts = append(opts, runner.WithTrigger(trigger))
	}
	r := runner.New(c.logger, c.cfg.WatchInterval, opts...)

	c.logger.Info().
		Str("stacks_dir", c.Catalog.Root()).
		Dur("watch_interval", c.cfg.WatchInterval).
		Str("http_addr", c.cfg.HTTPAddr).
		Msg("starting coordinator")

	var (
		wg        sync.WaitGroup
		runnerErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runnerErr = r.Run(ctx)
	}()

	serveErr := server.Serve(ctx, c.logger, server.Options{
		Addr:        c.cfg.HTTPAddr,
		MetricsPort: c.cfg.MetricsPort,
	}, c.serverDeps())
	cancel()

	wg.Wait()
	c.logger.Info().Msg("coordinator stopped")

	if serveErr != nil {
		return serveErr
	}
	return runnerErr
}

func (c *Coordinator) serverDeps() server.Deps {
	deps := server.Deps{
		Engine:        c.Engine,
		Details:       c.Status,
		Operator:      c.Operator,
		Logs:          c.Logs,
		Deployer:      c.Deployer,
		Runtime:       c.Runtime,
		Tracker:       c.Tracker,
		Metrics:       c.Metrics,
		WatchInterval: c.cfg.WatchInterval,
	}
	if c.probe != nil {
		deps.Probe = c.probe
	} else {
		deps.Probe = unavailableProbe{err: c.probeError}
	}
	return deps
}

// Close releases the daemon probe.
func (c *Coordinator) Close() error {
	return c.probe.Close()
}

type unavailableProbe struct {
	err error
}

func (p unavailableProbe) Ping(context.Context) error {
	return fmt.Errorf("docker daemon probe: %w", p.err)
}
