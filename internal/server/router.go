package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nholik/stackyard/internal/catalog"
	"github.com/nholik/stackyard/internal/deploy"
	"github.com/nholik/stackyard/internal/healthcheck"
	"github.com/nholik/stackyard/internal/lifecycle"
	"github.com/nholik/stackyard/internal/logstream"
	"github.com/nholik/stackyard/internal/metrics"
	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/runtime"
	"github.com/nholik/stackyard/internal/status"
	"github.com/rs/zerolog"
)

// Reconciler serves the unified stack view.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]reconcile.Stack, error)
	Stack(ctx context.Context, name string) (reconcile.Stack, error)
}

// DetailSource reports per-service details of one stack.
type DetailSource interface {
	GetStackServiceDetails(ctx context.Context, definitionPath string) ([]status.ServiceDetail, error)
}

// Operator runs lifecycle operations.
type Operator interface {
	Do(ctx context.Context, op lifecycle.Operation, definitionPath string) error
}

// LogSupervisor backfills and follows stack logs.
type LogSupervisor interface {
	Backfill(ctx context.Context, definitionPath string) (string, error)
	Open(ctx context.Context, stack, definitionPath string) (*logstream.Stream, error)
	Shutdown(ctx context.Context) error
}

// DeploymentCreator writes new stack definitions.
type DeploymentCreator interface {
	Create(ctx context.Context, r deploy.Request) (catalog.Definition, error)
}

// Deps are the components behind the HTTP surface. Nil optional fields
// disable the matching routes.
type Deps struct {
	Engine        Reconciler
	Details       DetailSource
	Operator      Operator
	Logs          LogSupervisor
	Deployer      DeploymentCreator
	Runtime       runtime.Executor
	Probe         healthcheck.Pinger
	Tracker       *healthcheck.Tracker
	Metrics       *metrics.Metrics
	WatchInterval time.Duration
}

// NewRouter builds the gin engine for the API, health and, when
// withMetrics is set, metrics routes.
func NewRouter(logger zerolog.Logger, deps Deps, withMetrics bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	h := &handlers{logger: logger.With().Str("component", "server").Logger(), deps: deps}

	api := router.Group("/api")
	api.GET("/stacks", h.listStacks)
	api.GET("/stacks/:name", h.getStack)
	api.POST("/stacks/:name/:op", h.runOperation)
	api.GET("/stacks/:name/logs", h.streamLogs)
	api.POST("/deployments", h.createDeployment)

	if deps.Runtime != nil {
		router.GET("/healthz", gin.WrapF(healthcheck.HealthHandler(deps.Runtime)))
	}
	router.GET("/readyz", gin.WrapF(healthcheck.ReadyHandler(deps.Tracker, deps.Probe, deps.WatchInterval)))
	if withMetrics && deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	return router
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Debug()
		if c.Writer.Status() >= 500 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
