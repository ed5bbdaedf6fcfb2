// Package daemon provides the long-running HTTP dispatch service: it
// holds a registry of live sessions and exposes the routing engine,
// pricing table, and session totals over a local API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/theirongolddev/promptroute/internal/engine"
	"github.com/theirongolddev/promptroute/internal/pricing"
	"github.com/theirongolddev/promptroute/internal/session"
	"github.com/theirongolddev/promptroute/internal/usage"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	DefaultModel string
	HistoryCap   int
	Capabilities session.Capabilities
}

// Status is served at /v1/status.
type Status struct {
	StartedAt     time.Time `json:"started_at"`
	Sessions      int       `json:"sessions"`
	Dispatches    int64     `json:"dispatches"`
	Failures      int64     `json:"failures"`
	DefaultModel  string    `json:"default_model"`
	PricingSource string    `json:"pricing_source"`
	PricingModels int       `json:"pricing_models"`
}

// DispatchRequest is the POST /v1/dispatch payload. SessionID is
// optional; omitting it starts a new session.
type DispatchRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

// UsagePayload mirrors a usage record on the wire.
type UsagePayload struct {
	Model         string  `json:"model"`
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	PricingSource string  `json:"pricing_source"`
	Approximate   bool    `json:"approximate"`
}

// EvidencePayload mirrors answer evidence on the wire.
type EvidencePayload struct {
	Kind      string             `json:"kind"`
	Citations []session.Citation `json:"citations,omitempty"`
	SQL       string             `json:"sql,omitempty"`
	RowCount  int                `json:"row_count,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// DispatchResponse is the POST /v1/dispatch reply.
type DispatchResponse struct {
	SessionID string           `json:"session_id"`
	Target    string           `json:"target"`
	Answer    string           `json:"answer"`
	Usage     *UsagePayload    `json:"usage,omitempty"`
	Evidence  *EvidencePayload `json:"evidence,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// TotalsResponse is the GET /v1/sessions/{id}/totals reply.
type TotalsResponse struct {
	SessionID    string  `json:"session_id"`
	Turns        int     `json:"turns"`
	Requests     int     `json:"requests"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	engine *engine.Engine

	mu         sync.RWMutex
	startedAt  time.Time
	dispatches int64
	failures   int64
	sessions   map[string]*session.Session
}

// New returns a new daemon service with the provided config.
func New(cfg Config, eng *engine.Engine) *Service {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8689"
	}
	if cfg.HistoryCap < 1 {
		cfg.HistoryCap = session.DefaultHistoryCap
	}

	return &Service{
		cfg:       cfg,
		engine:    eng,
		startedAt: time.Now(),
		sessions:  make(map[string]*session.Session),
	}
}

// Run starts HTTP endpoints until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/dispatch", s.handleDispatch)
	mux.HandleFunc("/v1/sessions/", s.handleSessionTotals)
	mux.HandleFunc("/v1/pricing", s.handlePricing)
	mux.HandleFunc("/v1/pricing/refresh", s.handlePricingRefresh)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Printf("promptroute daemon listening on %s", s.cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// resolveSession returns the session for id, creating a fresh one when
// id is empty. Unknown non-empty ids return nil.
func (s *Service) resolveSession(id string) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		sess := session.New(s.cfg.DefaultModel, s.cfg.HistoryCap)
		sess.Capabilities = s.cfg.Capabilities
		s.sessions[sess.ID] = sess
		return sess
	}
	return s.sessions[id]
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	info := s.engine.Pricing().Info()

	s.mu.RLock()
	st := Status{
		StartedAt:     s.startedAt,
		Sessions:      len(s.sessions),
		Dispatches:    s.dispatches,
		Failures:      s.failures,
		DefaultModel:  s.cfg.DefaultModel,
		PricingSource: info.Source,
		PricingModels: info.ModelCount,
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, st)
}

func (s *Service) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess := s.resolveSession(req.SessionID)
	if sess == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	target := s.engine.Route(req.Query, sess.Capabilities)
	msg, err := s.engine.Dispatch(r.Context(), sess, req.Query)

	s.mu.Lock()
	s.dispatches++
	if err != nil {
		s.failures++
	}
	s.mu.Unlock()

	if errors.Is(err, engine.ErrEmptyQuery) {
		http.Error(w, "empty query", http.StatusBadRequest)
		return
	}

	resp := DispatchResponse{
		SessionID: sess.ID,
		Target:    target.String(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if msg != nil {
		resp.Answer = msg.Content
		if msg.Usage != nil {
			resp.Usage = usagePayload(*msg.Usage)
		}
		if msg.Evidence != nil {
			resp.Evidence = evidencePayload(*msg.Evidence)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleSessionTotals(w http.ResponseWriter, r *http.Request) {
	// Path shape: /v1/sessions/{id}/totals
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	id, op, ok := strings.Cut(rest, "/")
	if !ok || op != "totals" || id == "" {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	sess := s.sessions[id]
	s.mu.RUnlock()
	if sess == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	t := sess.Totals()
	writeJSON(w, http.StatusOK, TotalsResponse{
		SessionID:    sess.ID,
		Turns:        sess.HistoryLen(),
		Requests:     t.Requests,
		InputTokens:  t.InputTokens,
		OutputTokens: t.OutputTokens,
		TotalCostUSD: t.TotalCost,
	})
}

func (s *Service) handlePricing(w http.ResponseWriter, _ *http.Request) {
	info := s.engine.Pricing().Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"source":             info.Source,
		"last_updated":       info.LastUpdated,
		"model_count":        info.ModelCount,
		"config_file_exists": info.ConfigFileExists,
	})
}

func (s *Service) handlePricingRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	method := pricing.Method(r.URL.Query().Get("method"))
	if method == "" {
		method = pricing.MethodManual
	}

	ok := s.engine.Pricing().Refresh(r.Context(), method)
	info := s.engine.Pricing().Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"refreshed": ok,
		"method":    string(method),
		"source":    info.Source,
	})
}

func usagePayload(rec usage.Record) *UsagePayload {
	return &UsagePayload{
		Model:         rec.Model,
		InputTokens:   rec.InputTokens,
		OutputTokens:  rec.OutputTokens,
		TotalCostUSD:  rec.TotalCost,
		PricingSource: rec.PricingSource,
		Approximate:   rec.Approximate,
	}
}

func evidencePayload(ev session.Evidence) *EvidencePayload {
	return &EvidencePayload{
		Kind:      string(ev.Kind),
		Citations: ev.Citations,
		SQL:       ev.SQL,
		RowCount:  ev.RowCount,
		Error:     ev.Error,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
