package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge
	RateLimited     *prometheus.CounterVec

	FormsSubmittedTotal prometheus.Counter
	AssignmentsTotal    *prometheus.CounterVec
	PickupsTotal        *prometheus.CounterVec
	ResponsesTotal      *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
	PDFsGeneratedTotal  prometheus.Counter

	// Failures of work that must not fail the request: pdf, notification, event, blob_cleanup.
	BestEffortFailures *prometheus.CounterVec

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// NewCollector registers every metric on reg under the given namespace.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	ns := strings.NewReplacer("-", "_", ".", "_").Replace(namespace)
	f := promauto.With(reg)

	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by limiter scope.",
		}, []string{"scope"}),

		FormsSubmittedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "referral",
			Name:      "forms_submitted_total",
			Help:      "Total number of medical forms submitted.",
		}),

		AssignmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "referral",
			Name:      "assignments_total",
			Help:      "Neurologist assignments by deciding strategy.",
		}, []string{"strategy"}),

		PickupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "referral",
			Name:      "pickups_total",
			Help:      "Attempts to claim unassigned forms, by outcome.",
		}, []string{"outcome"}),

		ResponsesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "referral",
			Name:      "responses_total",
			Help:      "Recorded form responses by resulting form status.",
		}, []string{"status"}),

		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications created by type.",
		}, []string{"type"}),

		PDFsGeneratedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "documents",
			Name:      "pdfs_generated_total",
			Help:      "Form PDFs rendered and stored.",
		}),

		BestEffortFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "referral",
			Name:      "best_effort_failures_total",
			Help:      "Failures of side work that does not fail the request, by kind.",
		}, []string{"kind"}),

		AuditEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
