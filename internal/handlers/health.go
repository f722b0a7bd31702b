package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusbridge/onboard/internal/monitoring"
	"github.com/campusbridge/onboard/pkg/response"
)

// HealthHandler renders liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager()
	}
	return &HealthHandler{manager: manager}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := requestContext(c)
	report := monitoring.MergeReports(h.manager.EvaluateLiveness(ctx), h.manager.EvaluateReadiness(ctx))
	h.render(c, report)
}

// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	h.render(c, h.manager.EvaluateLiveness(requestContext(c)))
}

// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	h.render(c, h.manager.EvaluateReadiness(requestContext(c)))
}

// Degraded dependencies keep the instance in rotation; only a down component fails the probe.
func (h *HealthHandler) render(c *gin.Context, report monitoring.HealthReport) {
	status := http.StatusOK
	if report.Status == monitoring.StatusDown {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, report)
}
