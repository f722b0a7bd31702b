package checks

import (
	"context"
	"time"

	"github.com/campusbridge/onboard/internal/monitoring"
)

const defaultCacheTimeout = 2 * time.Second

// Pinger represents the minimal interface required to probe a cache backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache returns a readiness probe for the shared cache. The backend name is
// reported in the probe details so operators can tell redis from the SQL fallback.
func Cache(client Pinger, backend string, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if client == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "cache unavailable",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultCacheTimeout))
		defer cancel()

		if err := client.Ping(probeCtx); err != nil {
			result := monitoring.ResultFromError("cache", err, time.Since(start))
			if backend == "redis" {
				// The SQL fallback keeps rate limits and MX lookups working.
				result.Status = monitoring.StatusDegraded
			}
			return result
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  backend,
			Duration: time.Since(start),
		}
	})
}
