// Package metrics exposes discovery instrumentation through the default
// Prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe cache results.
const (
	ProbeHit  = "hit"
	ProbeMiss = "miss"
	ProbeJoin = "join"
)

var (
	probeCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fnlist_probe_cache_total",
			Help: "Total number of runtime probe cache lookups by probe kind and result",
		},
		[]string{"kind", "result"},
	)

	discoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fnlist_discovery_duration_seconds",
			Help:    "Duration of discovery operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	functionsListed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fnlist_functions_listed_total",
			Help: "Total number of functions emitted by discovery operations",
		},
		[]string{"runtime"},
	)

	iscFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fnlist_isc_failures_total",
			Help: "Total number of entry files whose in-source configuration could not be extracted",
		},
	)
)

func RecordProbe(kind, result string) {
	probeCacheTotal.WithLabelValues(kind, result).Inc()
}

func RecordDiscovery(operation string, duration time.Duration) {
	discoveryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordFunctionListed(runtime string) {
	functionsListed.WithLabelValues(runtime).Inc()
}

func RecordISCFailure() {
	iscFailures.Inc()
}

// WriteTextfile writes every metric of the default registry to path in the
// Prometheus text exposition format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
