package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pathway_tracker"

// Task sources for TasksCreated.
const (
	TaskSourceAutomation = "automation"
	TaskSourceImport     = "import"
	TaskSourceManual     = "manual"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	tasksCreated    *prometheus.CounterVec
	membersIngested *prometheus.CounterVec
	syncFailures    *prometheus.CounterVec
	stageMoves      *prometheus.CounterVec
	draftFailures   prometheus.Counter
}

// NewMetrics registers every collector, plus Go runtime and process stats.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		tasksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Follow-up tasks created, by source.",
		}, []string{"source"}),
		membersIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_ingested_total",
			Help:      "Members created by sheet imports and forms, by source name.",
		}, []string{"source"}),
		syncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_sync_failures_total",
			Help:      "Failed integration syncs, by integration id.",
		}, []string{"integration"}),
		stageMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Members entering a stage.",
		}, []string{"stage"}),
		draftFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_draft_failures_total",
			Help:      "AI message drafts that failed.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.tasksCreated, m.membersIngested,
		m.syncFailures, m.stageMoves, m.draftFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// TasksCreated adds n tasks from source.
func (m *Metrics) TasksCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tasksCreated.WithLabelValues(source).Add(float64(n))
}

// MembersIngested adds n members created from source.
func (m *Metrics) MembersIngested(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.membersIngested.WithLabelValues(source).Add(float64(n))
}

// SyncFailed counts a failed integration sync.
func (m *Metrics) SyncFailed(integrationID string) {
	if m == nil {
		return
	}
	m.syncFailures.WithLabelValues(integrationID).Inc()
}

// StageEntered counts a member moving into stageID.
func (m *Metrics) StageEntered(stageID string) {
	if m == nil {
		return
	}
	m.stageMoves.WithLabelValues(stageID).Inc()
}

// DraftFailed counts a failed AI draft.
func (m *Metrics) DraftFailed() {
	if m == nil {
		return
	}
	m.draftFailures.Inc()
}
