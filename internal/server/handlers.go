package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/nholik/stackyard/internal/deploy"
	"github.com/nholik/stackyard/internal/lifecycle"
	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/status"
	"github.com/rs/zerolog"
)

type handlers struct {
	logger zerolog.Logger
	deps   Deps
}

// StackDetail is a reconciled stack together with its service details.
type StackDetail struct {
	reconcile.Stack
	ServiceDetails []status.ServiceDetail `json:"serviceDetails"`
}

// OperationResponse reports a completed lifecycle operation.
type OperationResponse struct {
	Stack     string `json:"stack"`
	Operation string `json:"operation"`
	Result    string `json:"result"`
}

func (h *handlers) listStacks(c *gin.Context) {
	stacks, err := h.deps.Engine.Reconcile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	sort.Slice(stacks, func(i, j int) bool {
		return stacks[i].Name < stacks[j].Name
	})
	c.JSON(http.StatusOK, stacks)
}

func (h *handlers) getStack(c *gin.Context) {
	ctx := c.Request.Context()
	stack, err := h.deps.Engine.Stack(ctx, c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}

	details, err := h.deps.Details.GetStackServiceDetails(ctx, stack.DefinitionPath)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, StackDetail{Stack: stack, ServiceDetails: details})
}

func (h *handlers) runOperation(c *gin.Context) {
	op, ok := lifecycle.ParseOperation(c.Param("op"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("unknown operation %q", c.Param("op")),
			Kind:  "not_found",
		})
		return
	}

	ctx := c.Request.Context()
	stack, err := h.deps.Engine.Stack(ctx, c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.deps.Operator.Do(ctx, op, stack.DefinitionPath); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, OperationResponse{Stack: stack.Name, Operation: string(op), Result: "ok"})
}

func (h *handlers) streamLogs(c *gin.Context) {
	ctx := c.Request.Context()
	stack, err := h.deps.Engine.Stack(ctx, c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}

	backfill, err := h.deps.Logs.Backfill(ctx, stack.DefinitionPath)
	if err != nil {
		h.fail(c, err)
		return
	}
	stream, err := h.deps.Logs.Open(ctx, stack.Name, stack.DefinitionPath)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("message", backfill)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream.Events():
			if !ok {
				<-stream.Done()
				c.SSEvent("close", string(stream.Reason()))
				c.Writer.Flush()
				return
			}
			c.SSEvent("message", event.Data)
			c.Writer.Flush()
		}
	}
}

func (h *handlers) createDeployment(c *gin.Context) {
	var req deploy.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Kind:  "validation",
		})
		return
	}

	def, err := h.deps.Deployer.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, def)
}
