package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nholik/stackyard/internal/catalog"
	"github.com/nholik/stackyard/internal/compose"
	"github.com/nholik/stackyard/internal/deploy"
	"github.com/nholik/stackyard/internal/logstream"
	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/runtime"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps an error to its HTTP status and a short kind label.
func classify(err error) (int, string) {
	var (
		validationErr *deploy.ValidationError
		timeoutErr    *runtime.TimeoutError
		invocationErr *runtime.InvocationError
		parseErr      *compose.ParseError
		reconcileErr  *reconcile.Error
	)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &validationErr), errors.Is(err, catalog.ErrInvalidName):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, catalog.ErrNameTaken):
		return http.StatusConflict, "name_taken"
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, logstream.ErrShuttingDown):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.As(err, &invocationErr):
		return http.StatusBadGateway, "runtime"
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "parse"
	case errors.As(err, &reconcileErr):
		return http.StatusBadGateway, "reconcile"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *handlers) fail(c *gin.Context, err error) {
	code, kind := classify(err)
	event := h.logger.Debug()
	if code >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).Str("kind", kind).Str("path", c.FullPath()).Msg("request failed")
	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error(), Kind: kind})
}
