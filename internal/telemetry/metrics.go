// Package telemetry provides application-level observability for the AdmitAI API.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by cmd/server:
//
//	GET http://<host>:<ADM_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not part of the Gin router.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/timeline/tasks/:taskId)
// rather than the raw request URL so user ids and task ids never become label values.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Storytelling metrics.
//
// AIFeedbackRequestsTotal is labelled by kind ("block" or "cultural_fit"),
// provider ("gemini" or "heuristic") and outcome ("ok" or "error"). A rising
// error rate on the gemini provider with a steady heuristic rate means the
// fallback is absorbing an upstream outage.
var (
	StoryBlocksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "story_blocks_created_total",
			Help: "Total number of story blocks created.",
		},
	)

	AIFeedbackRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_feedback_requests_total",
			Help: "Total number of feedback generation attempts, by kind, provider, and outcome.",
		},
		[]string{"kind", "provider", "outcome"},
	)

	AIFeedbackDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_feedback_duration_seconds",
			Help:    "Latency of feedback generation, by provider.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)
)

// ContactSubmissionsTotal counts accepted contact form submissions.
var ContactSubmissionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "contact_submissions_total",
		Help: "Total number of contact form submissions stored.",
	},
)

// TaskRemindersSentTotal is incremented once per reminder email delivered by
// the task reminder job. A stalled counter while tasks are due is a useful
// alert signal for SMTP delivery failures.
var TaskRemindersSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "task_reminders_sent_total",
		Help: "Total number of timeline task reminder emails successfully sent.",
	},
)

// SEOParityIngestsTotal counts parity snapshots written, by outcome.
var SEOParityIngestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "seo_parity_ingests_total",
		Help: "Total number of SEO parity snapshot writes, by outcome.",
	},
	[]string{"outcome"},
)

// DBOpenConnections tracks the number of open connections held by the sql.DB
// pool. It is sampled every 30 seconds by StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples sql.DB pool statistics every 30 seconds until
// ctx is cancelled or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()
}
