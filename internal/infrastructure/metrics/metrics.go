package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jira_github"

// Metrics groups the integration's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	webhookDeliveries *prometheus.CounterVec
	webhookDuration   *prometheus.HistogramVec
	githubRequests    *prometheus.CounterVec
	githubRetries     prometheus.Counter
	githubRateRemain  prometheus.Gauge
	syncEffects       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Inbound GitHub webhook deliveries by event and outcome.",
		}, []string{"event", "outcome"}),
		webhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Time spent handling an inbound webhook.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		githubRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "github_requests_total",
			Help:      "Outbound GitHub API attempts by method and status code.",
		}, []string{"method", "status"}),
		githubRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "github_retries_total",
			Help:      "Outbound GitHub API attempts that were retries.",
		}),
		githubRateRemain: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "github_rate_limit_remaining",
			Help:      "Last X-RateLimit-Remaining value reported by GitHub.",
		}),
		syncEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_effects_total",
			Help:      "Jira side effects attempted for routed pull request events.",
		}, []string{"effect", "result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.webhookDeliveries,
			m.webhookDuration,
			m.githubRequests,
			m.githubRetries,
			m.githubRateRemain,
			m.syncEffects,
		)
	}
	return m
}

// WebhookDelivery counts one inbound delivery
func (m *Metrics) WebhookDelivery(event, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if event == "" {
		event = "unknown"
	}
	m.webhookDeliveries.WithLabelValues(event, outcome).Inc()
	m.webhookDuration.WithLabelValues(event).Observe(elapsed.Seconds())
}

// GitHubRequest counts one outbound attempt. status 0 means a transport failure.
func (m *Metrics) GitHubRequest(method string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.githubRequests.WithLabelValues(method, label).Inc()
}

// GitHubRetry counts one retried attempt
func (m *Metrics) GitHubRetry() {
	if m == nil {
		return
	}
	m.githubRetries.Inc()
}

// RateLimitRemaining records the remaining quota
func (m *Metrics) RateLimitRemaining(remaining int) {
	if m == nil {
		return
	}
	m.githubRateRemain.Set(float64(remaining))
}

// SyncEffect counts one transition, comment or link attempt
func (m *Metrics) SyncEffect(effect string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.syncEffects.WithLabelValues(effect, result).Inc()
}
