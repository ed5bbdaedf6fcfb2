package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/promptroute/internal/adapter"
	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/engine"
	"github.com/theirongolddev/promptroute/internal/pricing"
	"github.com/theirongolddev/promptroute/internal/session"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	loader := pricing.NewLoader(filepath.Join(t.TempDir(), "pricing.json"))
	eng := engine.New(classify.New(), loader,
		adapter.NewGeneral(adapter.DemoCompletion{}),
	)
	return New(Config{
		DefaultModel: "gpt-3.5-turbo",
		HistoryCap:   20,
	}, eng)
}

func postDispatch(t *testing.T, s *Service, body string) DispatchResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleDispatch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("dispatch status = %d, body %s", w.Code, w.Body.String())
	}
	var resp DispatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding dispatch response: %v", err)
	}
	return resp
}

func TestDispatchCreatesSession(t *testing.T) {
	s := newTestService(t)

	resp := postDispatch(t, s, `{"query":"hello there"}`)
	if resp.SessionID == "" {
		t.Fatal("dispatch did not assign a session id")
	}
	if resp.Target != "general" {
		t.Errorf("target = %q, want general", resp.Target)
	}
	if resp.Answer == "" {
		t.Error("dispatch returned empty answer")
	}
	if resp.Usage == nil || resp.Usage.TotalCostUSD <= 0 {
		t.Errorf("usage = %+v, want positive cost", resp.Usage)
	}

	// Same session id reuses the session.
	second := postDispatch(t, s, `{"session_id":"`+resp.SessionID+`","query":"and again"}`)
	if second.SessionID != resp.SessionID {
		t.Errorf("second dispatch session = %q, want %q", second.SessionID, resp.SessionID)
	}

	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	if n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
}

func TestDispatchEmptyQuery(t *testing.T) {
	s := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", strings.NewReader(`{"query":"   "}`))
	w := httptest.NewRecorder()
	s.handleDispatch(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDispatchUnknownSession(t *testing.T) {
	s := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch",
		strings.NewReader(`{"session_id":"nope","query":"hello"}`))
	w := httptest.NewRecorder()
	s.handleDispatch(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSessionTotalsEndpoint(t *testing.T) {
	s := newTestService(t)
	resp := postDispatch(t, s, `{"query":"hello there"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+resp.SessionID+"/totals", nil)
	w := httptest.NewRecorder()
	s.handleSessionTotals(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("totals status = %d", w.Code)
	}
	var tr TotalsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decoding totals: %v", err)
	}
	if tr.Requests != 1 || tr.Turns != 1 {
		t.Errorf("totals = %+v, want 1 request / 1 turn", tr)
	}
	if tr.TotalCostUSD <= 0 {
		t.Errorf("TotalCostUSD = %v, want > 0", tr.TotalCostUSD)
	}
}

func TestSessionTotalsUnknown(t *testing.T) {
	s := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/missing/totals", nil)
	w := httptest.NewRecorder()
	s.handleSessionTotals(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestService(t)
	postDispatch(t, s, `{"query":"hello"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	w := httptest.NewRecorder()
	s.handleStatus(w, req)

	var st Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if st.Dispatches != 1 || st.Sessions != 1 {
		t.Errorf("status = %+v, want 1 dispatch / 1 session", st)
	}
	if st.PricingSource != pricing.SourceFallback {
		t.Errorf("PricingSource = %q, want fallback", st.PricingSource)
	}
}

func TestPricingRefreshEndpoint(t *testing.T) {
	s := newTestService(t)

	// Manual refresh with no config file on disk must not swap the table.
	req := httptest.NewRequest(http.MethodPost, "/v1/pricing/refresh?method=manual", nil)
	w := httptest.NewRecorder()
	s.handlePricingRefresh(w, req)

	var out struct {
		Refreshed bool   `json:"refreshed"`
		Source    string `json:"source"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding refresh: %v", err)
	}
	if out.Refreshed {
		t.Error("refresh reported success with no config file")
	}
	if out.Source != pricing.SourceFallback {
		t.Errorf("source = %q, want fallback", out.Source)
	}
}

func TestCapabilitiesFlowToSessions(t *testing.T) {
	loader := pricing.NewLoader(filepath.Join(t.TempDir(), "pricing.json"))
	eng := engine.New(classify.New(), loader,
		adapter.NewGeneral(adapter.DemoCompletion{}),
	)
	s := New(Config{
		DefaultModel: "gpt-3.5-turbo",
		Capabilities: session.Capabilities{HasDatabase: true},
	}, eng)

	sess := s.resolveSession("")
	if !sess.Capabilities.HasDatabase {
		t.Error("new session missing configured database capability")
	}
}
