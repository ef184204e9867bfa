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
	// Marketplace client metrics
	DealPagesFetched  prometheus.Counter
	ProductsRequested prometheus.Counter
	FetchRetries      prometheus.Counter

	// Ingestion metrics
	ProductsProcessed    prometheus.Counter
	DealsAdmitted        *prometheus.CounterVec
	DealsRejected        *prometheus.CounterVec
	DealsPurged          prometheus.Counter
	SnapshotsWritten     prometheus.Counter
	IngestionRunsTotal   *prometheus.CounterVec
	IngestionRunDuration prometheus.Histogram

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
	ActiveDealsCount  prometheus.Gauge
}

// Rejection reasons for the DealsRejected counter.
const (
	RejectIncomplete     = "incomplete_metrics"
	RejectBelowThreshold = "below_threshold"
	RejectBadItemCode    = "bad_item_code"
)

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "amazon_deals"
	}

	return &Metrics{
		// Marketplace client metrics
		DealPagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "deal_pages_fetched_total",
			Help:      "Total number of deal listing pages fetched",
		}),
		ProductsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "products_requested_total",
			Help:      "Total number of product detail payloads requested",
		}),
		FetchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "fetch_retries_total",
			Help:      "Total number of retried marketplace requests",
		}),

		// Ingestion metrics
		ProductsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "products_processed_total",
			Help:      "Total number of product payloads evaluated",
		}),
		DealsAdmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "deals_admitted_total",
			Help:      "Total number of deals admitted by category",
		}, []string{"category"}),
		DealsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "deals_rejected_total",
			Help:      "Total number of deals rejected by reason",
		}, []string{"reason"}),
		DealsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "deals_purged_total",
			Help:      "Total number of stale deals purged at run end",
		}),
		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "snapshots_written_total",
			Help:      "Total number of price snapshots written",
		}),
		IngestionRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs by status",
		}, []string{"status"}),
		IngestionRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "run_duration_seconds",
			Help:      "Ingestion run duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful ingestion run",
		}),
		ActiveDealsCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "active_deals",
			Help:      "Number of active deals after the last run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
