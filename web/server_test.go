package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livescore-service/config"
	"livescore-service/logger"
	"livescore-service/models"
	"livescore-service/services"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard, io.Discard)
	os.Exit(m.Run())
}

type testEnv struct {
	server    *httptest.Server
	srv       *Server
	store     *services.MemoryMatchStore
	simulator *services.MatchSimulator
	writer    *services.SnapshotWriter
	hub       *Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Port:              "0",
		RetryMillis:       5000,
		ChatMaxLength:     500,
		PullInterval:      10 * time.Millisecond,
		PullEventsLimit:   5,
		RecentEventsLimit: 3,
	}

	store := services.NewMemoryMatchStore()
	registry := services.NewSubscriptionRegistry()
	hub := NewHub(registry, nil, cfg.ChatMaxLength)
	writer := services.NewSnapshotWriter(store, time.Millisecond)

	// 概率为 0, 测试中不会随机产生事件
	engine := services.NewMatchEngine(services.EngineConfig{FullTimeMinute: 90, HalfTimeMinute: 45}, rand.New(rand.NewSource(1)))
	sim := services.NewMatchSimulator(engine, writer, hub.FanOut(), services.SimulatorConfig{Tick: time.Hour, RecentEvents: 3})

	seeds := []*models.Match{
		models.NewMatch(7, "X", "Y"),
		models.NewMatch(8, "A", "B"),
	}
	finished := models.NewMatch(9, "C", "D")
	finished.Minute = 90
	finished.Status = models.MatchStatusFullTime
	seeds = append(seeds, finished)
	require.NoError(t, sim.Bootstrap(context.Background(), store, seeds))

	stream := services.NewEventStream(store, services.EventStreamConfig{Interval: cfg.PullInterval, Limit: cfg.PullEventsLimit})
	srv := NewServer(cfg, store, sim, stream, hub)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, srv: srv, store: store, simulator: sim, writer: writer, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/api/health", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["matches"])
	assert.Equal(t, float64(0), body["rooms"])
}

func TestGetMatches(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/api/matches", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["count"])
	first := body["matches"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(7), first["id"])
	assert.Equal(t, "0-0", first["score"])
	assert.Equal(t, "NOT_STARTED", first["status"])
}

func TestGetMatch(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/api/matches/8", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A", body["home"])

	resp, body = env.do(t, "GET", "/api/matches/404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "not found")

	resp, _ = env.do(t, "GET", "/api/matches/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApplyEventEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/matches/7/events", map[string]interface{}{
		"type": "goal", "team": "X", "minute": 10,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1-0", body["score"])

	require.NoError(t, env.writer.Flush(context.Background()))
	stored, err := env.store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "1-0", stored.Score.String())
}

func TestApplyEventEndpointErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"unknown team", "/api/matches/7/events", map[string]interface{}{"type": "goal", "team": "Z", "minute": 10}, http.StatusBadRequest},
		{"unknown type", "/api/matches/7/events", map[string]interface{}{"type": "corner", "team": "X", "minute": 10}, http.StatusBadRequest},
		{"malformed body", "/api/matches/7/events", "not an event", http.StatusBadRequest},
		{"unknown match", "/api/matches/404/events", map[string]interface{}{"type": "goal", "team": "X"}, http.StatusNotFound},
		{"finished match", "/api/matches/9/events", map[string]interface{}{"type": "goal", "team": "C", "minute": 90}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, "POST", tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}

	m, err := env.simulator.Snapshot(7)
	require.NoError(t, err)
	assert.Empty(t, m.Events)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "livescore_")
}
