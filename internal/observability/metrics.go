// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Collection metrics
	PagesFetched     *prometheus.CounterVec
	RecordsCollected *prometheus.CounterVec
	CollectionErrors *prometheus.CounterVec
	PagesTruncated   *prometheus.CounterVec

	// Funnel metrics
	CandidatesDiscovered prometheus.Counter
	DuplicatesDropped    prometheus.Counter
	StageOutput          *prometheus.CounterVec
	StageErrors          *prometheus.CounterVec
	CandidatesVetoed     prometheus.Counter
	EnrichmentDenied     prometheus.Counter
	AlertsEmitted        prometheus.Counter

	// Budget metrics
	APICallsUsed *prometheus.CounterVec

	// Latency metrics
	PageFetchLatency *prometheus.HistogramVec
	SessionDuration  prometheus.Histogram
	StageDuration    *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSession prometheus.Gauge
	LivestreamConnected   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dexradar"
	}

	return &Metrics{
		// Collection metrics
		PagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "pages_fetched_total",
			Help:      "Total number of pages fetched by source",
		}, []string{"source"}),
		RecordsCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "records_collected_total",
			Help:      "Total number of records collected by source",
		}, []string{"source"}),
		CollectionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "errors_total",
			Help:      "Total number of collection errors by source",
		}, []string{"source"}),
		PagesTruncated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "pages_truncated_total",
			Help:      "Total number of paginations stopped at the page cap",
		}, []string{"source"}),

		// Funnel metrics
		CandidatesDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "candidates_discovered_total",
			Help:      "Total number of distinct candidates discovered",
		}),
		DuplicatesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "duplicates_dropped_total",
			Help:      "Total number of duplicate pair records dropped during merge",
		}),
		StageOutput: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "stage_output_total",
			Help:      "Total number of candidates emitted by each funnel stage",
		}, []string{"stage"}),
		StageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "stage_errors_total",
			Help:      "Total number of per-candidate errors by funnel stage",
		}, []string{"stage"}),
		CandidatesVetoed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "candidates_vetoed_total",
			Help:      "Total number of candidates cut by the critical-risk veto",
		}),
		EnrichmentDenied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "enrichment_denied_total",
			Help:      "Total number of candidates denied paid enrichment by the budget gate",
		}),
		AlertsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "alerts_emitted_total",
			Help:      "Total number of alerts emitted",
		}),

		// Budget metrics
		APICallsUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "api_calls_used_total",
			Help:      "Total number of external API calls recorded per service",
		}, []string{"service"}),

		// Latency metrics
		PageFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "page_fetch_latency_seconds",
			Help:      "Page fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "session_duration_seconds",
			Help:      "End-to-end funnel session duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "stage_duration_seconds",
			Help:      "Funnel stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSession: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_session_timestamp",
			Help:      "Unix timestamp of the last successfully finalized session",
		}),
		LivestreamConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "livestream_connected",
			Help:      "1 when the livestream websocket is connected, 0 otherwise",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageFetched records one fetched page and its record count.
func RecordPageFetched(source string, records int, seconds float64) {
	DefaultMetrics.PagesFetched.WithLabelValues(source).Inc()
	DefaultMetrics.RecordsCollected.WithLabelValues(source).Add(float64(records))
	DefaultMetrics.PageFetchLatency.WithLabelValues(source).Observe(seconds)
}

// RecordCollectionError records a failed page fetch.
func RecordCollectionError(source string) {
	DefaultMetrics.CollectionErrors.WithLabelValues(source).Inc()
}

// RecordPageCapHit records a pagination stopped at the page cap.
func RecordPageCapHit(source string) {
	DefaultMetrics.PagesTruncated.WithLabelValues(source).Inc()
}

// RecordStageOutput records the candidate count a stage emitted.
func RecordStageOutput(stage string, count int) {
	DefaultMetrics.StageOutput.WithLabelValues(stage).Add(float64(count))
}

// RecordStageError records a per-candidate stage error.
func RecordStageError(stage string) {
	DefaultMetrics.StageErrors.WithLabelValues(stage).Inc()
}

// RecordVeto increments the critical-risk veto counter.
func RecordVeto() {
	DefaultMetrics.CandidatesVetoed.Inc()
}

// RecordEnrichmentDenied increments the budget-gate denial counter.
func RecordEnrichmentDenied() {
	DefaultMetrics.EnrichmentDenied.Inc()
}

// RecordAPICalls records external API calls consumed by a service.
func RecordAPICalls(service string, calls int) {
	DefaultMetrics.APICallsUsed.WithLabelValues(service).Add(float64(calls))
}

// RecordAlert increments the alerts emitted counter.
func RecordAlert() {
	DefaultMetrics.AlertsEmitted.Inc()
}

// RecordSessionFinalized records a completed session.
func RecordSessionFinalized(durationSeconds float64, unixNow int64) {
	DefaultMetrics.SessionDuration.Observe(durationSeconds)
	DefaultMetrics.LastSuccessfulSession.Set(float64(unixNow))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetLivestreamConnected flips the livestream health gauge.
func SetLivestreamConnected(connected bool) {
	if connected {
		DefaultMetrics.LivestreamConnected.Set(1)
	} else {
		DefaultMetrics.LivestreamConnected.Set(0)
	}
}
