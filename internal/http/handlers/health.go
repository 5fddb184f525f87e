package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is any dependency /readyz should wait for (postgres, redis).
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks   map[string]Pinger
	draining func() bool
}

// NewHealthHandler takes the readiness checks and an optional draining
// flag that flips during graceful shutdown.
func NewHealthHandler(checks map[string]Pinger, draining func() bool) *HealthHandler {
	if draining == nil {
		draining = func() bool { return false }
	}
	return &HealthHandler{checks: checks, draining: draining}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	failed := gin.H{}
	for name, ping := range h.checks {
		if ping == nil {
			continue
		}
		if err := ping(cctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": failed})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
