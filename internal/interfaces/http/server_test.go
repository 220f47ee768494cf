package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikecast/strikecast/internal/engine"
	"github.com/strikecast/strikecast/internal/marketdata"
	"github.com/strikecast/strikecast/internal/metrics"
	"github.com/strikecast/strikecast/internal/pricing"
)

var serverNow = time.Date(2025, 7, 21, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()
	provider := marketdata.SeedDemo(serverNow)
	pricer := pricing.NewEngine(pricing.DefaultConfig()).WithClock(func() time.Time { return serverNow })
	mset := metrics.NewSet()
	eng := engine.New(engine.DefaultConfig(), provider, pricer, mset, zerolog.Nop()).
		WithClock(func() time.Time { return serverNow })
	health := marketdata.NewHealthMonitor(provider, "SPY", zerolog.Nop())

	return NewServer(DefaultServerConfig(), eng, health, mset, zerolog.Nop())
}

func do(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPredictEndpoint(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/predict/spy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SPY", body["ticker"])
	assert.Greater(t, body["atr_value"].(float64), 0.0)
	assert.Greater(t, body["predicted_high"].(float64), body["predicted_low"].(float64))
}

func TestPredictUnknownTicker(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/predict/ZZZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredictInsufficientHistory(t *testing.T) {
	provider := marketdata.NewStatic()
	provider.Add("TINY", marketdata.TickerData{
		Series: marketdata.GenerateSeries("TINY", 8, 40, serverNow.AddDate(0, 0, -20)),
	})
	pricer := pricing.NewEngine(pricing.DefaultConfig())
	eng := engine.New(engine.DefaultConfig(), provider, pricer, nil, zerolog.Nop())
	srv := NewServer(DefaultServerConfig(), eng, nil, nil, zerolog.Nop())

	rec := do(t, srv, http.MethodGet, "/predict/TINY")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCandidatesEndpoint(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/candidates/NVDA")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ticker     string `json:"ticker"`
		Candidates []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NVDA", body.Ticker)
	require.NotEmpty(t, body.Candidates)
	for _, c := range body.Candidates {
		assert.NotEmpty(t, c.Title)
		assert.Contains(t, c.URL, "optionstrat.com/build/")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)

	// Generate some activity first.
	do(t, srv, http.MethodGet, "/predict/SPY")

	rec := do(t, srv, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "strikecast_")
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, testServer(t), http.MethodPost, "/predict/SPY")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
