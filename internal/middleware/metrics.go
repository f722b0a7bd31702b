package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusbridge/onboard/pkg/metrics"
)

// unmatchedRoute labels requests that hit no route so scanners probing
// random paths cannot grow the latency series without bound.
const unmatchedRoute = "unmatched"

// Metrics observes request latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.InFlightRequests.Inc()
		defer metrics.InFlightRequests.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
