package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/runpad/console"
	"github.com/caffeineduck/runpad/metrics"
)

type testServer struct {
	env      *environment
	sessions *sessionManager
	metrics  *metrics.Metrics
	handler  http.Handler
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	env := newTestEnvironment(t)
	m := metrics.New()
	sessions := newSessionStore(env, m)
	t.Cleanup(sessions.closeAll)

	return &testServer{
		env:      env,
		sessions: sessions,
		metrics:  m,
		handler:  newServeMux(env, sessions, m),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp createSessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func (s *testServer) entries(t *testing.T, id string) []console.Entry {
	t.Helper()

	w := s.do(t, http.MethodGet, "/sessions/"+id+"/log", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp logResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Entries
}

func TestHealthEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestLanguagesEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp languagesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"javascript"}, resp.Languages)
}

func TestSessionRun(t *testing.T) {
	s := setupTestServer(t)
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{
		Language: "javascript",
		Source:   `console.log("a"); console.log("b"); console.log("c")`,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp runResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.RunID)
	assert.False(t, resp.Pending)

	entries := s.entries(t, id)
	require.Len(t, entries, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, entries[i].Text)
		assert.Equal(t, console.Output, entries[i].Kind)
	}
	assert.Less(t, entries[0].Sequence, entries[1].Sequence)
}

func TestSessionRunErrors(t *testing.T) {
	s := setupTestServer(t)
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{Language: "javascript", Source: "(("})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{Language: "cobol", Source: "DISPLAY 1"})
	require.Equal(t, http.StatusOK, w.Code)

	entries := s.entries(t, id)
	require.Len(t, entries, 2)
	assert.Equal(t, console.Error, entries[0].Kind)
	assert.Equal(t, console.Error, entries[1].Kind)
	assert.Equal(t, `unsupported language "cobol"`, entries[1].Text)
}

func TestSessionRunBadRequest(t *testing.T) {
	s := setupTestServer(t)
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{Source: "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/run", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = s.do(t, http.MethodPost, "/sessions/nope/run", runRequest{Language: "javascript"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionRunBusy(t *testing.T) {
	s := setupTestServer(t)
	gate := newGateRunner()
	s.env.registry.Register("gate", gate)
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{Language: "gate", Source: "first"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp runResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Pending)
	assert.Zero(t, resp.DurationMs)

	w = s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{Language: "javascript", Source: `console.log("x")`})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, s.entries(t, id))

	close(gate.release)
	require.Eventually(t, func() bool {
		entries := s.entries(t, id)
		return len(entries) == 1 && entries[0].Text == "first"
	}, 2*time.Second, 10*time.Millisecond)

	ss, _ := s.sessions.get(id)
	require.Eventually(t, func() bool { return !ss.disp.Busy() }, 2*time.Second, 10*time.Millisecond)
}

func TestSessionRunWait(t *testing.T) {
	s := setupTestServer(t)
	gate := newGateRunner()
	s.env.registry.Register("gate", gate)
	id := s.createSession(t)

	time.AfterFunc(20*time.Millisecond, func() { close(gate.release) })

	w := s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{Language: "gate", Source: "done", Wait: true})
	require.Equal(t, http.StatusOK, w.Code)

	var resp runResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Pending)
	assert.GreaterOrEqual(t, resp.DurationMs, int64(10))

	entries := s.entries(t, id)
	require.Len(t, entries, 1)
	assert.Equal(t, "done", entries[0].Text)
}

func TestSessionLogClearAndDownload(t *testing.T) {
	s := setupTestServer(t)
	id := s.createSession(t)

	s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{
		Language: "javascript",
		Source:   `console.log("one"); console.log("two"); throw new Error("three")`,
	})

	w := s.do(t, http.MethodGet, "/sessions/"+id+"/log.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "one\ntwo\nthree", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "console.txt")

	w = s.do(t, http.MethodDelete, "/sessions/"+id+"/log", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.entries(t, id))

	// Idempotent snapshot of the emptied log.
	assert.Empty(t, s.entries(t, id))
}

func TestCloseSession(t *testing.T) {
	s := setupTestServer(t)
	id := s.createSession(t)

	w := s.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/sessions/"+id+"/log", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := setupTestServer(t)
	a := s.createSession(t)
	b := s.createSession(t)
	require.NotEqual(t, a, b)

	s.do(t, http.MethodPost, "/sessions/"+a+"/run", runRequest{Language: "javascript", Source: `console.log("a")`})

	assert.Len(t, s.entries(t, a), 1)
	assert.Empty(t, s.entries(t, b))
}

func TestSessionReap(t *testing.T) {
	s := setupTestServer(t)
	idle := s.createSession(t)
	fresh := s.createSession(t)

	s.sessions.mu.Lock()
	s.sessions.sessions[idle].lastUsed = time.Now().Add(-2 * s.sessions.ttl)
	s.sessions.mu.Unlock()

	assert.Equal(t, 1, s.sessions.reap(time.Now()))

	_, ok := s.sessions.get(idle)
	assert.False(t, ok)
	_, ok = s.sessions.get(fresh)
	assert.True(t, ok)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	id := s.createSession(t)
	s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{Language: "javascript", Source: `console.log(1)`})

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `runpad_runs_total{language="javascript",status="ok"} 1`)
	assert.Contains(t, w.Body.String(), "runpad_active_sessions 1")
}

func TestUnknownLanguagesShareMetricSeries(t *testing.T) {
	s := setupTestServer(t)
	id := s.createSession(t)

	for i := 0; i < 50; i++ {
		w := s.do(t, http.MethodPost, "/sessions/"+id+"/run", runRequest{Language: fmt.Sprintf("lang-%d", i), Source: "x"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(s.metrics.RunsTotal))
	assert.Equal(t, 50.0, testutil.ToFloat64(s.metrics.RunsTotal.WithLabelValues("unsupported", "unsupported")))

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "lang-")
	assert.Equal(t, 1, strings.Count(w.Body.String(), "runpad_runs_total{"))
}
