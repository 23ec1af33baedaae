package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything readiness depends on (postgres pool, redis client).
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	deps           map[string]Pinger
	isShuttingDown func() bool
}

// NewHealthHandler reports not ready while isShuttingDown returns true, so
// load balancers drain the instance before the server stops. A nil
// isShuttingDown never drains.
func NewHealthHandler(deps map[string]Pinger, isShuttingDown func() bool) *HealthHandler {
	if isShuttingDown == nil {
		isShuttingDown = func() bool { return false }
	}
	return &HealthHandler{deps: deps, isShuttingDown: isShuttingDown}
}

// Root answers the client's startup connectivity probe.
func (h *HealthHandler) Root(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "API is running successfully"})
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.isShuttingDown() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 1*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, ping := range h.deps {
		if err := ping(cctx); err != nil {
			failed[name] = "unavailable"
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": failed})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
