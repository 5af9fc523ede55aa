package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRecorder struct {
	Noop
	route         string
	status        int
	requestCalls  int
	durationCalls int
}

func (m *mockRecorder) IncRequestsTotal(route string, status int) {
	m.route = route
	m.status = status
	m.requestCalls++
}

func (m *mockRecorder) ObserveRequestDuration(_ string, _ time.Duration) { m.durationCalls++ }

func TestMiddleware_CapturesStatusAndRoutePattern(t *testing.T) {
	rec := &mockRecorder{}

	r := chi.NewRouter()
	r.Use(Middleware(rec))
	r.Post("/api/v1/follows/{userID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/follows/user-42", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, 1, rec.requestCalls)
	assert.Equal(t, "/api/v1/follows/{userID}", rec.route)
	assert.Equal(t, http.StatusCreated, rec.status)
	assert.Equal(t, 1, rec.durationCalls)
}

func TestMiddleware_DefaultStatus200(t *testing.T) {
	rec := &mockRecorder{}

	handler := Middleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.status)
	assert.Equal(t, "/health", rec.route)
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, sw.status)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPrometheus_CountsAndExposes(t *testing.T) {
	m := NewPrometheus(prometheus.NewRegistry())

	m.IncStatsUpdates("record_work_session")
	m.IncStatsUpdates("record_work_session")
	m.IncAchievementsAwarded("streak")
	m.AddStreaksDecayed(3)
	m.IncRequestsTotal("/health", 204)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `ippi_stats_updates_total{op="record_work_session"} 2`)
	assert.Contains(t, out, `ippi_achievements_awarded_total{category="streak"} 1`)
	assert.Contains(t, out, "ippi_streaks_decayed_total 3")
	assert.Contains(t, out, `ippi_http_requests_total{route="/health",status="2xx"} 1`)
}

func TestNew_DisabledIsNoop(t *testing.T) {
	rec := New(false)
	_, ok := rec.(Noop)
	assert.True(t, ok)

	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHTTPStatusBucket(t *testing.T) {
	assert.Equal(t, "2xx", httpStatusBucket(200))
	assert.Equal(t, "4xx", httpStatusBucket(429))
	assert.Equal(t, "5xx", httpStatusBucket(503))
}
