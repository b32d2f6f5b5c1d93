// metrics.go
package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	combinationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sweep",
		Name:      "combinations_total",
		Help:      "Processed parameter combinations by outcome.",
	}, []string{"outcome"})

	tickerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sweep",
		Name:      "ticker_duration_seconds",
		Help:      "Full parameter sweep duration per ticker.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	tickerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sweep",
		Name:      "ticker_errors_total",
		Help:      "Ticker-level sweep failures.",
	})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sweep",
		Name:      "cache_requests_total",
		Help:      "Per-ticker cache requests by result.",
	}, []string{"result"})
)

func observeOutcome(o SweepOutcome) {
	combinationsTotal.WithLabelValues("evaluated").Add(float64(o.Evaluated))
	combinationsTotal.WithLabelValues("skipped").Add(float64(o.Skipped))
	combinationsTotal.WithLabelValues("rejected").Add(float64(o.Rejected))
	combinationsTotal.WithLabelValues("failed").Add(float64(o.Failed))

	cacheHits.WithLabelValues("hit").Add(float64(o.CacheStats.Hits))
	cacheHits.WithLabelValues("miss").Add(float64(o.CacheStats.Misses))

	tickerDuration.Observe(o.Elapsed.Seconds())
	if o.Err != nil {
		tickerErrors.Inc()
	}
}
