package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/topicstreams-scraper/internal/cycle"
)

type fakeStatus struct {
	mu sync.Mutex
	st cycle.Status
}

func (f *fakeStatus) Status() cycle.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fakeStatus) set(st cycle.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st = st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeStatus{}, nil)
	rec := get(t, server.Handler(), "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_ReadyzTransitions(t *testing.T) {
	t.Parallel()

	status := &fakeStatus{st: cycle.Status{State: cycle.StateRunning}}
	server := NewServer(status, nil)

	rec := get(t, server.Handler(), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "starting")

	status.set(cycle.Status{State: cycle.StateRunning, Cycles: 1, Last: &cycle.Report{Outcome: cycle.OutcomeSuccess}})
	rec = get(t, server.Handler(), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	status.set(cycle.Status{State: cycle.StateRunning, Cycles: 2, Last: &cycle.Report{
		Outcome: cycle.OutcomeFailed,
		Error:   "collect: browser crashed",
	}})
	rec = get(t, server.Handler(), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "browser crashed")

	status.set(cycle.Status{State: cycle.StateStopped, Last: &cycle.Report{Outcome: cycle.OutcomeSuccess}})
	rec = get(t, server.Handler(), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Status(t *testing.T) {
	t.Parallel()

	status := &fakeStatus{st: cycle.Status{
		State:    cycle.StateRunning,
		Cycles:   3,
		Failures: 1,
		Interval: time.Minute,
		Last:     &cycle.Report{CycleID: "c-3", Outcome: cycle.OutcomeSuccess, New: 4},
	}}
	server := NewServer(status, nil)

	rec := get(t, server.Handler(), "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got cycle.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, cycle.StateRunning, got.State)
	require.Equal(t, 3, got.Cycles)
	require.Equal(t, "c-3", got.Last.CycleID)
	require.Equal(t, 4, got.Last.New)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeStatus{}, nil)
	_ = get(t, server.Handler(), "/healthz")
	rec := get(t, server.Handler(), "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_RecoversPanics(t *testing.T) {
	t.Parallel()

	server := NewServer(panicStatus{}, nil)
	rec := get(t, server.Handler(), "/v1/status")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicStatus struct{}

func (panicStatus) Status() cycle.Status { panic("status unavailable") }

func TestServer_PropagatesRequestID(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeStatus{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
