package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/config"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/controller"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/objective"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.State.Path = filepath.Join(t.TempDir(), "state.json")

	ctrl, err := controller.New(controller.Config{
		Registry: objective.NewRegistry(),
		PhaseBudgets: map[controller.Phase]int{
			controller.PhaseBeLoadingTurbo:  20,
			controller.PhaseBeEjectionTurbo: 20,
			controller.PhaseHDLoadingTurbo:  20,
			controller.PhaseGlobalMOBO:      20,
		},
		Seed: 9,
	})
	require.NoError(t, err)

	srv := NewServer(cfg, ctrl, prometheus.NewRegistry(), nil)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := http.Post(ts.URL+path, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, ts *httptest.Server, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func startPhase(t *testing.T, ts *httptest.Server, phase string) {
	t.Helper()
	resp, _ := postJSON(t, ts, "/api/v1/phase/start", map[string]string{"phase": phase})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPhaseStartAndStatus(t *testing.T) {
	ts := newTestServer(t)
	startPhase(t, ts, "be_loading")

	resp, status := getJSON(t, ts, "/api/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "be_loading", status["phase"])
	assert.Equal(t, 0.0, status["iteration"])
}

func TestPhaseStartRejectsUnknownPhase(t *testing.T) {
	ts := newTestServer(t)
	resp, body := postJSON(t, ts, "/api/v1/phase/start", map[string]string{"phase": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown phase")
}

func TestAskTellCycle(t *testing.T) {
	ts := newTestServer(t)
	startPhase(t, ts, "be_loading")

	resp, ask := postJSON(t, ts, "/api/v1/ask", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	params, ok := ask["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, params, "oven_current")
	assert.Contains(t, params, "load_time_ms")

	resp, tell := postJSON(t, ts, "/api/v1/tell", map[string]interface{}{
		"measurements": map[string]float64{"total_time_ms": 250},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, tell["iteration"])
}

func TestAskWhilePendingConflicts(t *testing.T) {
	ts := newTestServer(t)
	startPhase(t, ts, "be_loading")

	resp, _ := postJSON(t, ts, "/api/v1/ask", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, ts, "/api/v1/ask", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTellWithoutAskConflicts(t *testing.T) {
	ts := newTestServer(t)
	startPhase(t, ts, "be_loading")

	resp, _ := postJSON(t, ts, "/api/v1/tell", map[string]interface{}{
		"measurements": map[string]float64{},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestParetoEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, body := getJSON(t, ts, "/api/v1/pareto")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, body["size"])
}

func TestStateSaveAndLoad(t *testing.T) {
	ts := newTestServer(t)
	startPhase(t, ts, "be_loading")

	_, _ = postJSON(t, ts, "/api/v1/ask", nil)
	resp, _ := postJSON(t, ts, "/api/v1/tell", map[string]interface{}{
		"measurements": map[string]float64{"total_time_ms": 250},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, saved := postJSON(t, ts, "/api/v1/state/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, saved["path"])

	resp, loaded := postJSON(t, ts, "/api/v1/state/load", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "be_loading", loaded["phase"])
	assert.Equal(t, 1.0, loaded["iteration"])
}

func TestStateLoadMissingFileFails(t *testing.T) {
	ts := newTestServer(t)
	resp, body := postJSON(t, ts, "/api/v1/state/load", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}
