// Package metrics counts hub calls, applied changes, and workflow
// phase durations via github.com/prometheus/client_golang, exposed for
// an optional --metrics-addr flag on sync/compare (SPEC_FULL.md section B).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every counter/histogram this module emits, wired
// into a caller-supplied prometheus.Registerer so cmd/habitude can
// choose between the default global registry and an isolated one per
// --metrics-addr invocation.
type Registry struct {
	HubCalls       *prometheus.CounterVec
	ChangesApplied *prometheus.CounterVec
	PhaseDuration  *prometheus.HistogramVec
}

// New registers every metric against reg and returns the bundle.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		HubCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "koji_habitude",
			Name:      "hub_calls_total",
			Help:      "Total hub RPC calls issued, by phase (read/write) and method.",
		}, []string{"phase", "method"}),
		ChangesApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "koji_habitude",
			Name:      "changes_applied_total",
			Help:      "Total changes applied, by kind (create/update/add/remove/modify).",
		}, []string{"kind"}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "koji_habitude",
			Name:      "workflow_phase_duration_seconds",
			Help:      "Duration of each workflow phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
	}
}

// ObserveHubCall increments the hub-call counter for one RPC.
func (r *Registry) ObserveHubCall(phase, method string) {
	if r == nil {
		return
	}
	r.HubCalls.WithLabelValues(phase, method).Inc()
}

// ObserveChange increments the applied-changes counter for one change kind.
func (r *Registry) ObserveChange(kind string) {
	if r == nil {
		return
	}
	r.ChangesApplied.WithLabelValues(kind).Inc()
}

// PhaseTimer returns a function that, when called, records the elapsed
// time for phase against PhaseDuration.
func (r *Registry) PhaseTimer(phase string) func() {
	if r == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(r.PhaseDuration.WithLabelValues(phase))
	return func() { timer.ObserveDuration() }
}
