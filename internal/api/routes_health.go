package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusbridge/onboard/internal/app"
	"github.com/campusbridge/onboard/internal/handlers"
	"github.com/campusbridge/onboard/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if cfg == nil {
		return
	}

	if !cfg.Monitoring.Health.Enabled || mon == nil || mon.Health() == nil {
		for _, router := range []gin.IRouter{r, r.Group("/api")} {
			router.GET("/health", disabledHealthHandler)
			router.GET("/health/live", disabledHealthHandler)
			router.GET("/health/ready", disabledHealthHandler)
		}
		return
	}

	handler := handlers.NewHealthHandler(mon.Health())
	registerHealthEndpoints(r, handler)
	registerHealthEndpoints(r.Group("/api"), handler)
}

func registerHealthEndpoints(router gin.IRouter, handler *handlers.HealthHandler) {
	router.GET("/health", handler.Health)
	router.GET("/health/live", handler.Live)
	router.GET("/health/ready", handler.Ready)
}

func registerMetricsRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if cfg == nil || !cfg.Monitoring.Prometheus.Enabled || mon == nil {
		return
	}
	endpoint := cfg.Monitoring.Prometheus.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(mon.Handler()))
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
