package match

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-match labels to prevent DoS)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_tick_duration_seconds",
		Help:    "Time spent in one match simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.016, 0.05},
	})

	activeMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matches_active",
		Help: "Currently running matches",
	})

	matchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matches_total",
		Help: "Total matches started",
	})

	defaultInputsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_default_inputs_total",
		Help: "Ticks where a bot missed its decision deadline and a no-op input was substituted",
	})
)

// recordTick records tick timing for metrics
func recordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}
