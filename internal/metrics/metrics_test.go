package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "/api/tasks/:id", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/tasks/:id", http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `team_task_api_http_requests_total{method="GET",route="/api/tasks/:id",status="200"} 2`)
	assert.Contains(t, body, `team_task_api_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `team_task_api_http_request_duration_seconds_count{method="GET",route="/api/tasks/:id"} 2`)
}

func TestHandlerIncludesRuntimeCollectors(t *testing.T) {
	assert.Contains(t, scrape(t, New()), "go_goroutines")
}
