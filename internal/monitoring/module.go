package monitoring

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options control monitoring module configuration.
type Options struct {
	// Namespace configures the Prometheus namespace. Defaults to "onboard".
	Namespace string
	// IncludeDefaultRegistry merges collectors registered through promauto into the
	// exposed metrics. The Go and process collectors live there as well.
	IncludeDefaultRegistry bool
}

// Module coordinates maintenance collectors, runtime health probes and summary state.
type Module struct {
	registry  *prometheus.Registry
	gatherers prometheus.Gatherers
	metrics   *collectors
	jobs      *jobLedger
	health    *HealthManager
}

// NewModule constructs a monitoring module with its own Prometheus registry.
func NewModule(opts Options) (*Module, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "onboard"
	}

	registry := prometheus.NewRegistry()
	metrics := newCollectors(namespace)
	for _, collector := range metrics.all() {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	gatherers := prometheus.Gatherers{registry}
	if opts.IncludeDefaultRegistry {
		gatherers = append(gatherers, prometheus.DefaultGatherer)
	}

	return &Module{
		registry:  registry,
		gatherers: gatherers,
		metrics:   metrics,
		jobs:      newJobLedger(),
		health:    NewHealthManager(),
	}, nil
}

// Registry exposes the underlying Prometheus registry.
func (m *Module) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an http.Handler serving Prometheus metrics for this module.
func (m *Module) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.gatherers, promhttp.HandlerOpts{})
}

// Health exposes the health manager responsible for liveness and readiness probes.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

// Summary returns a point-in-time copy of the job ledger.
func (m *Module) Summary() Summary {
	if m == nil {
		return (*jobLedger)(nil).summary()
	}
	return m.jobs.summary()
}

var globalModule atomic.Pointer[Module]

// SetModule configures the process-wide monitoring module used by instrumentation helpers.
func SetModule(module *Module) {
	if module == nil {
		return
	}
	globalModule.Store(module)
}

// CurrentModule returns the process-wide monitoring module, or nil when unset.
func CurrentModule() *Module {
	return globalModule.Load()
}
