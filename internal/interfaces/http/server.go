// Package http exposes the read-only screening API: health, predictions,
// candidates and Prometheus metrics. It never mutates engine state.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/strikecast/strikecast/internal/domain/market"
	"github.com/strikecast/strikecast/internal/domain/options"
	"github.com/strikecast/strikecast/internal/engine"
	"github.com/strikecast/strikecast/internal/marketdata"
	"github.com/strikecast/strikecast/internal/metrics"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultServerConfig binds to localhost only.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           "127.0.0.1:8080",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		RequestTimeout: 25 * time.Second,
	}
}

// Server is the read-only API server.
type Server struct {
	cfg    ServerConfig
	engine *engine.Engine
	health *marketdata.HealthMonitor
	mset   *metrics.Set
	log    zerolog.Logger
	srv    *http.Server
}

// NewServer wires the routes and middleware.
func NewServer(cfg ServerConfig, eng *engine.Engine, health *marketdata.HealthMonitor, mset *metrics.Set, log zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: eng,
		health: health,
		mset:   mset,
		log:    log.With().Str("component", "http").Logger(),
	}

	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.timeoutMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/predict/{ticker}", s.handlePredict).Methods(http.MethodGet)
	r.HandleFunc("/candidates/{ticker}", s.handleCandidates).Methods(http.MethodGet)
	if mset != nil {
		r.Handle("/metrics", promhttp.HandlerFor(mset.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks until the context is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	code := http.StatusOK
	if s.health != nil {
		status := s.health.Status()
		resp["provider"] = status
		if !status.Healthy && !status.LastCheck.IsZero() {
			resp["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(mux.Vars(r)["ticker"])
	pred, err := s.engine.PredictRange(r.Context(), ticker)
	if err != nil {
		s.writeError(w, ticker, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(mux.Vars(r)["ticker"])
	cands, pred, err := s.engine.BuildCandidates(r.Context(), ticker)
	if err != nil {
		s.writeError(w, ticker, err)
		return
	}

	type candidateView struct {
		options.Candidate
		URL string `json:"url,omitempty"`
	}
	views := make([]candidateView, 0, len(cands))
	for _, c := range cands {
		v := candidateView{Candidate: c}
		if url, encErr := s.engine.EncodeURL(c); encErr == nil {
			v.URL = url
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticker":     ticker,
		"prediction": pred,
		"candidates": views,
	})
}

func (s *Server) writeError(w http.ResponseWriter, ticker string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, marketdata.ErrInvalidTicker):
		code = http.StatusNotFound
	case errors.Is(err, market.ErrInsufficientData):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, marketdata.ErrDataUnavailable):
		code = http.StatusBadGateway
	}
	writeJSON(w, code, map[string]string{"ticker": ticker, "error": err.Error()})
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
