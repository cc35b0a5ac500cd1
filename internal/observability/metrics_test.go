package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.TasksCreated(TaskSourceAutomation, 2)
	m.TasksCreated(TaskSourceAutomation, 0)
	m.MembersIngested("Connect Card", 3)
	m.SyncFailed("int-1")
	m.DraftFailed()
	m.ObserveRequest("GET /api/members", "GET", 200, 15*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `pathway_tracker_tasks_created_total{source="automation"} 2`)
	assert.Contains(t, body, `pathway_tracker_members_ingested_total{source="Connect Card"} 3`)
	assert.Contains(t, body, `pathway_tracker_sheet_sync_failures_total{integration="int-1"} 1`)
	assert.Contains(t, body, `pathway_tracker_ai_draft_failures_total 1`)
	assert.Contains(t, body, `pathway_tracker_http_requests_total{method="GET",route="GET /api/members",status="200"} 1`)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.StageEntered("nc-2")

	body := scrape(t, m)
	assert.Contains(t, body, `pathway_tracker_stage_transitions_total{stage="nc-2"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TasksCreated(TaskSourceManual, 1)
		m.MembersIngested("x", 1)
		m.SyncFailed("x")
		m.StageEntered("x")
		m.DraftFailed()
		m.ObserveRequest("r", "GET", 200, time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	quiet, err := NewLogger(false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(-1))
}
