// Package metrics defines the Prometheus instrumentation for the screening
// pipeline. All collectors hang off an injected registry so tests can use
// isolated registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set bundles every collector the engine and provider stack report into.
type Set struct {
	registry *prometheus.Registry

	ScreensTotal       prometheus.Counter
	ScreenDuration     prometheus.Histogram
	ProviderRequests   *prometheus.CounterVec
	PricingFallbacks   prometheus.Counter
	CandidatesBuilt    *prometheus.CounterVec
	CandidatesRejected *prometheus.CounterVec
}

// NewSet registers all collectors on a fresh registry.
func NewSet() *Set {
	return NewSetWithRegistry(prometheus.NewRegistry())
}

// NewSetWithRegistry registers all collectors on the given registry.
func NewSetWithRegistry(reg *prometheus.Registry) *Set {
	factory := promauto.With(reg)
	return &Set{
		registry: reg,
		ScreensTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "strikecast_screens_total",
			Help: "Completed watchlist screening batches.",
		}),
		ScreenDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "strikecast_screen_duration_seconds",
			Help:    "Wall time of a full screening batch.",
			Buckets: prometheus.DefBuckets,
		}),
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "strikecast_provider_requests_total",
			Help: "Market data provider calls by operation and outcome.",
		}, []string{"op", "result"}),
		PricingFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "strikecast_pricing_fallbacks_total",
			Help: "Legs priced by the synthetic model instead of a real quote.",
		}),
		CandidatesBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "strikecast_candidates_built_total",
			Help: "Strategy candidates constructed, by kind.",
		}, []string{"kind"}),
		CandidatesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "strikecast_candidates_rejected_total",
			Help: "Strategy candidates discarded during construction, by kind.",
		}, []string{"kind"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (s *Set) Registry() *prometheus.Registry {
	return s.registry
}

// RecordProviderRequest satisfies the provider RequestRecorder contract.
func (s *Set) RecordProviderRequest(op, result string) {
	s.ProviderRequests.WithLabelValues(op, result).Inc()
}
