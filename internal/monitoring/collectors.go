package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	maintenanceRuns     *prometheus.CounterVec
	maintenanceDuration *prometheus.HistogramVec
	maintenanceLastRun  *prometheus.GaugeVec
	maintenancePurged   *prometheus.CounterVec
}

func newCollectors(namespace string) *collectors {
	return &collectors{
		maintenanceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Maintenance job executions by result",
			},
			[]string{"job", "result"},
		),
		maintenanceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "maintenance_duration_seconds",
				Help:      "Duration of maintenance job executions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		maintenanceLastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "maintenance_last_success_timestamp",
				Help:      "Unix timestamp of the last successful maintenance run",
			},
			[]string{"job"},
		),
		maintenancePurged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_purged_rows_total",
				Help:      "Rows removed by maintenance jobs",
			},
			[]string{"job"},
		),
	}
}

func (c *collectors) all() []prometheus.Collector {
	return []prometheus.Collector{
		c.maintenanceRuns,
		c.maintenanceDuration,
		c.maintenanceLastRun,
		c.maintenancePurged,
	}
}

func observeDuration(observer prometheus.Observer, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	observer.Observe(duration.Seconds())
}
