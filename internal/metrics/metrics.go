package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "search",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route, requested source and status code.",
	}, []string{"method", "path", "source", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "search",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path", "source"})

	SourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "search",
		Name:      "source_requests_total",
		Help:      "Total requests to music sources by source name and result status.",
	}, []string{"source", "status"})

	SourceRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "search",
		Name:      "source_request_duration_seconds",
		Help:      "Music source request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"source"})

	SourceAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "search",
		Name:      "source_available",
		Help:      "Whether a source is available (1) or blocked by circuit breaker (0).",
	}, []string{"source"})

	MergedClusters = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "search",
		Name:      "merged_clusters",
		Help:      "Number of ranked clusters produced by one aggregated search page.",
		Buckets:   []float64{0, 5, 10, 20, 40, 80, 160},
	})

	PlaybackEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "search",
		Name:      "playback_events_total",
		Help:      "Playback outcomes reported per source.",
	}, []string{"source", "outcome"})

	SourceDynamicScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "search",
		Name:      "source_dynamic_score",
		Help:      "Current quality score derived from playback outcomes.",
	}, []string{"source"})

	SessionFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "search",
		Name:      "session_fetches_total",
		Help:      "Session fetch completions by outcome.",
	}, []string{"outcome"})

	LookupCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "search",
		Name:      "lookup_cache_hits_total",
		Help:      "Total number of track lookup cache hits by kind.",
	}, []string{"kind"})

	LookupCacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "search",
		Name:      "lookup_cache_misses_total",
		Help:      "Total number of track lookup cache misses by kind.",
	}, []string{"kind"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SourceRequestsTotal,
		SourceRequestDuration,
		SourceAvailable,
		MergedClusters,
		PlaybackEventsTotal,
		SourceDynamicScore,
		SessionFetchesTotal,
		LookupCacheHitsTotal,
		LookupCacheMissesTotal,
	)
}
