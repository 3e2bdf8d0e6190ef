package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oncallkb_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Analysis metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oncallkb_analyses_total",
			Help: "Total transcript analyses",
		},
		[]string{"origin"}, // "cli", "http", "nats" or "backfill"
	)

	ThreadsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oncallkb_threads_parsed_total",
			Help: "Total threads accepted from transcripts",
		},
	)

	BlocksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oncallkb_blocks_skipped_total",
			Help: "Total transcript blocks skipped for lacking a thread header",
		},
	)

	MessageCountDivergence = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oncallkb_message_count_divergence_total",
			Help: "Threads whose declared message count differs from the parsed messages",
		},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oncallkb_analysis_duration_seconds",
			Help:    "Time spent analyzing one transcript",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)
