package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusbridge/onboard/internal/monitoring"
)

const defaultMaintenanceMaxAge = 3 * time.Hour

// Maintenance reads the job ledger. A job whose last run failed marks the
// probe down; one that has not run for maxAge marks it degraded, since
// expired codes and tokens are still rejected at read time.
func Maintenance(maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		start := time.Now()
		summary := monitoring.Snapshot()
		if len(summary.Jobs) == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "no jobs recorded yet",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var notes []string
		for _, job := range summary.Jobs {
			switch {
			case job.Failing():
				status = monitoring.Worse(status, monitoring.StatusDown)
				reason := job.LastError
				if reason == "" {
					reason = fmt.Sprintf("%d failed runs", job.FailStreak)
				}
				notes = append(notes, job.Name+": "+reason)
			case job.StaleAt(start, maxAge):
				status = monitoring.Worse(status, monitoring.StatusDegraded)
				notes = append(notes, job.Name+": last ran "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(notes, "; "),
			Duration: time.Since(start),
		}
	})
}
