package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Options configures the listeners started by Serve.
type Options struct {
	Addr string
	// MetricsPort serves /metrics on its own listener when > 0. Otherwise
	// /metrics is part of the API router.
	MetricsPort int
}

// Serve runs the API server, and the metrics server when configured, until
// ctx is canceled or a listener fails. Open log streams are closed before
// the HTTP servers shut down.
func Serve(ctx context.Context, logger zerolog.Logger, opts Options, deps Deps) error {
	separateMetrics := opts.MetricsPort > 0
	router := NewRouter(logger, deps, !separateMetrics)

	errCh := make(chan error, 2)
	servers := []*http.Server{startServer(logger, router, opts.Addr, "api", errCh)}

	if separateMetrics && deps.Metrics != nil {
		metricsRouter := gin.New()
		metricsRouter.Use(gin.Recovery())
		metricsRouter.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
		servers = append(servers, startServer(logger, metricsRouter, fmt.Sprintf(":%d", opts.MetricsPort), "metrics", errCh))
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if deps.Logs != nil {
		if err := deps.Logs.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("log streams did not close before the shutdown deadline")
		}
	}
	for _, server := range servers {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("addr", server.Addr).Msg("http server shutdown failed")
		}
	}

	return serveErr
}

func startServer(logger zerolog.Logger, handler http.Handler, addr string, label string, errCh chan<- error) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("server", label).Str("addr", addr).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("server", label).Str("addr", addr).Msg("http server failed")
			errCh <- fmt.Errorf("%s server: %w", label, err)
		}
	}()

	return server
}
