package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the portal's Prometheus collectors. All methods are nil-safe so
// services can run without instrumentation in tests.
type Metrics struct {
	// Background task outcomes by kind ("otp_email", "scheme_fanout", ...) and outcome.
	Tasks *prometheus.CounterVec

	// Tasks dropped because the dispatcher queue was full.
	TasksDropped *prometheus.CounterVec

	TaskLatency *prometheus.HistogramVec

	// OTP codes issued by trigger ("login", "resend").
	OTPIssued *prometheus.CounterVec

	// New-scheme emails by result ("sent", "failed").
	FanoutEmails *prometheus.CounterVec

	HTTPDuration *prometheus.HistogramVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in main
// and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Tasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_background_tasks_total",
			Help: "Background tasks executed by kind and outcome",
		}, []string{"kind", "outcome"}), // outcome: "ok", "error", "panic"

		TasksDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_background_tasks_dropped_total",
			Help: "Background tasks dropped because the queue was full",
		}, []string{"kind"}),

		TaskLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_background_task_duration_seconds",
			Help:    "Duration of background tasks by kind",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),

		OTPIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_otp_issued_total",
			Help: "OTP codes issued by trigger",
		}, []string{"trigger"}),

		FanoutEmails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_scheme_fanout_emails_total",
			Help: "New-scheme notification emails by send result",
		}, []string{"result"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) ObserveTask(kind, outcome string, d time.Duration) {
	if m != nil {
		m.Tasks.WithLabelValues(kind, outcome).Inc()
		m.TaskLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (m *Metrics) IncTaskDropped(kind string) {
	if m != nil {
		m.TasksDropped.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncOTPIssued(trigger string) {
	if m != nil {
		m.OTPIssued.WithLabelValues(trigger).Inc()
	}
}

func (m *Metrics) AddFanoutEmails(sent, failed int) {
	if m != nil {
		m.FanoutEmails.WithLabelValues("sent").Add(float64(sent))
		m.FanoutEmails.WithLabelValues("failed").Add(float64(failed))
	}
}

func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}
