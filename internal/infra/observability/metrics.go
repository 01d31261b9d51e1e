package observability

import (
	"time"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the copilot service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	savesTotal      *prometheus.CounterVec
	proposalsTotal  *prometheus.CounterVec
	remindersSent   prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_requests_total",
				Help: "Total assistant requests processed.",
			},
			[]string{"status"},
		),
		savesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_budget_saves_total",
				Help: "Total debounced budget persistence attempts.",
			},
			[]string{"status"},
		),
		proposalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_proposals_total",
				Help: "Total staged budget proposals by outcome.",
			},
			[]string{"outcome"},
		),
		remindersSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "copilot_reminders_sent_total",
				Help: "Total bill reminder emails sent.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrRequest increments the assistant request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrSave increments the budget save counter ("ok" or "error").
func (m *Metrics) IncrSave(status string) {
	m.savesTotal.WithLabelValues(status).Inc()
}

// IncrProposal increments the proposal counter ("staged", "applied", "discarded").
func (m *Metrics) IncrProposal(outcome string) {
	m.proposalsTotal.WithLabelValues(outcome).Inc()
}

// IncrReminderSent increments the sent-reminder counter.
func (m *Metrics) IncrReminderSent() {
	m.remindersSent.Inc()
}

// GetAssistantSnapshot returns a snapshot of assistant-related metrics for
// the GET /v1/metrics/assistant endpoint.
func (m *Metrics) GetAssistantSnapshot() *domain.AssistantMetrics {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "budget")
	cacheMisses := getCounterValue(m.cacheMisses, "budget")

	totalTokens := promptTokens + completionTokens
	avgTokens := float64(0)
	errorRate := float64(0)
	cacheHitRate := float64(0)

	if totalRequests > 0 {
		avgTokens = totalTokens / totalRequests
		errorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	// Estimated cost: ~$0.03/1k prompt tokens, ~$0.06/1k completion tokens
	estimatedCost := (promptTokens/1000)*0.03 + (completionTokens/1000)*0.06

	return &domain.AssistantMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		AvgTokensPerRequest: avgTokens,
		EstimatedCostUsd:    estimatedCost,
		ProposalsStaged:     int64(getCounterValue(m.proposalsTotal, "staged")),
		ProposalsApplied:    int64(getCounterValue(m.proposalsTotal, "applied")),
		ProposalsDiscarded:  int64(getCounterValue(m.proposalsTotal, "discarded")),
		CacheHitRate:        cacheHitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
