package monitoring

import (
	"strings"
	"time"
)

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, purged int64, duration time.Duration) {
	module := CurrentModule()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)

	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)
	if result == "success" {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(time.Now().Unix()))
	}
	if purged > 0 {
		module.metrics.maintenancePurged.WithLabelValues(jobID).Add(float64(purged))
	}
	module.jobs.record(jobID, result, strings.TrimSpace(message), purged, duration)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
