package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/monitors"
	"github.com/teamhub-dev/teamhub/internal/types"
	"go.uber.org/zap"
)

type HealthHandler struct {
	probes []monitors.Probe
	log    *zap.SugaredLogger
}

func NewHealthHandler(log *zap.Logger, probes ...monitors.Probe) *HealthHandler {
	return &HealthHandler{probes: probes, log: log.Sugar().With("handler", "health")}
}

// HealthCheck answers 503 when any dependency probe fails.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	checks := monitors.RunAll(c.Request.Context(), h.probes, h.log)

	status := http.StatusOK
	if !monitors.Healthy(checks) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, types.NewHealthResponse(checks, time.Now()))
}
