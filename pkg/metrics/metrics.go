package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by account type and result (success|failure|unverified).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboard_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"account_type", "result"},
	)

	// Signups counts created accounts per type.
	Signups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboard_signups_total",
			Help: "Total number of signups",
		},
		[]string{"account_type", "result"},
	)

	// VerificationEvents counts verification code lifecycle events
	// (issued|verified|invalid|expired|cooldown|exhausted|mail_failed).
	VerificationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboard_verification_events_total",
			Help: "Verification code lifecycle events",
		},
		[]string{"account_type", "event"},
	)

	// SectionUpdates counts profile section writes.
	SectionUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboard_section_updates_total",
			Help: "Profile section update attempts",
		},
		[]string{"account_type", "section", "result"},
	)

	// DomainChecks counts email domain policy decisions (allowed|blocked|no_mx|unavailable|cached).
	DomainChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboard_domain_checks_total",
			Help: "Email domain policy evaluations",
		},
		[]string{"result"},
	)

	// MXLookupLatency measures DNS MX lookups.
	MXLookupLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "onboard_mx_lookup_seconds",
			Help:    "Latency of MX lookups for signup domains",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboard_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// InFlightRequests tracks requests currently being served.
	InFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onboard_api_in_flight_requests",
			Help: "HTTP requests currently in flight",
		},
	)
)
