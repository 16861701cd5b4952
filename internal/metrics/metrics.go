package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	spreadsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangasplit",
			Name:      "spreads_processed_total",
			Help:      "Total spreads analyzed, labeled by result mode",
		},
		[]string{"mode"},
	)

	analyzeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mangasplit",
			Name:      "analyze_duration_seconds",
			Help:      "Duration of the split analysis per spread",
			Buckets:   prometheus.DefBuckets,
		},
	)

	pagesEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mangasplit",
			Name:      "pages_emitted_total",
			Help:      "Total page images written by the batch driver",
		},
	)

	filesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangasplit",
			Name:      "files_skipped_total",
			Help:      "Input files skipped before analysis, by reason",
		},
		[]string{"reason"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(spreadsProcessed, analyzeDuration, pagesEmitted, filesSkipped)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// ObserveSpread records one analyzed spread and how long it took.
func ObserveSpread(mode string, dur time.Duration) {
	spreadsProcessed.WithLabelValues(mode).Inc()
	analyzeDuration.Observe(dur.Seconds())
}

func AddPagesEmitted(n int) { pagesEmitted.Add(float64(n)) }

func IncSkipped(reason string) { filesSkipped.WithLabelValues(reason).Inc() }
