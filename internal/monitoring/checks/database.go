package checks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campusbridge/onboard/internal/database"
	"github.com/campusbridge/onboard/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database pings the account store. The dialect and pool usage go into the
// details; a pool with every connection busy is reported degraded because
// signups will queue behind it.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	timeout = chooseTimeout(timeout, defaultDatabaseTimeout)

	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ResultFromError("database", errors.New("database not configured"), 0)
		}

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := database.Ping(probeCtx, db); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		result := monitoring.ProbeResult{
			Component: "database",
			Status:    monitoring.StatusUp,
			Details:   db.Dialector.Name(),
			Duration:  time.Since(start),
		}
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			result.Details = fmt.Sprintf("%s open=%d in_use=%d", db.Dialector.Name(), stats.OpenConnections, stats.InUse)
			if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
				result.Status = monitoring.StatusDegraded
			}
		}
		return result
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
