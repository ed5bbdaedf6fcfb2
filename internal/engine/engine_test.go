package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/promptroute/internal/adapter"
	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/pricing"
	"github.com/theirongolddev/promptroute/internal/session"
)

// newTestEngine wires the engine with demo backends: canned completion,
// canned documents, and the seeded sample database.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	db, err := adapter.OpenSampleDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	loader := pricing.NewLoader(filepath.Join(t.TempDir(), "pricing.json"))
	return New(classify.New(), loader,
		adapter.NewGeneral(adapter.DemoCompletion{}),
		adapter.NewDocument(adapter.DemoDocuments{}),
		adapter.NewDatabase(adapter.DemoGenerator{}, db, adapter.SQLiteSchema{DB: db}),
	)
}

func TestDispatch_EmptyQueryRejected(t *testing.T) {
	e := newTestEngine(t)
	sess := session.New("gpt-3.5-turbo", 20)

	for _, q := range []string{"", "   ", "\n\t "} {
		msg, err := e.Dispatch(context.Background(), sess, q)
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Dispatch(%q) err = %v, want ErrEmptyQuery", q, err)
		}
		if msg != nil {
			t.Errorf("Dispatch(%q) returned a message for a rejected turn", q)
		}
	}
	if sess.HistoryLen() != 0 {
		t.Errorf("rejected turns must not be recorded, ledger has %d turns", sess.HistoryLen())
	}
}

func TestDispatch_GeneralTurnRecordsUsage(t *testing.T) {
	e := newTestEngine(t)
	sess := session.New("gpt-3.5-turbo", 20)

	msg, err := e.Dispatch(context.Background(), sess, "Explain machine learning")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if msg.Role != session.RoleAssistant || msg.Content == "" {
		t.Errorf("assistant message = %+v", msg)
	}
	if msg.Usage == nil {
		t.Fatal("assistant message has no usage record")
	}
	if msg.Usage.InputTokens <= 0 || msg.Usage.OutputTokens <= 0 {
		t.Errorf("usage tokens = %d/%d, want positive estimates",
			msg.Usage.InputTokens, msg.Usage.OutputTokens)
	}
	if msg.Usage.TotalCost <= 0 {
		t.Errorf("TotalCost = %g, want > 0 for a priced model", msg.Usage.TotalCost)
	}

	totals := sess.Totals()
	if totals.Requests != 1 || totals.TotalCost != msg.Usage.TotalCost {
		t.Errorf("session totals not accumulated exactly once: %+v", totals)
	}
	if sess.HistoryLen() != 1 {
		t.Errorf("HistoryLen = %d, want 1", sess.HistoryLen())
	}
}

func TestDispatch_DatabaseOnlyRoutesToDatabase(t *testing.T) {
	e := newTestEngine(t)
	sess := session.New("gpt-3.5-turbo", 20)
	sess.Capabilities.HasDatabase = true

	msg, err := e.Dispatch(context.Background(), sess, "How many customers do we have?")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if msg.Content != "10" {
		t.Errorf("answer = %q, want 10", msg.Content)
	}
	if msg.Evidence == nil || msg.Evidence.Kind != session.EvidenceSQL {
		t.Fatalf("evidence = %+v, want generated SQL", msg.Evidence)
	}
	if !strings.HasPrefix(strings.ToUpper(msg.Evidence.SQL), "SELECT COUNT(*)") {
		t.Errorf("evidence SQL = %q, want SELECT COUNT(*) shape", msg.Evidence.SQL)
	}
}

func TestDispatch_DocumentOnlyRoutesToDocuments(t *testing.T) {
	e := newTestEngine(t)
	sess := session.New("gpt-3.5-turbo", 20)
	sess.Capabilities.HasDocumentIndex = true

	msg, err := e.Dispatch(context.Background(), sess, "what is the refund policy?")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if msg.Evidence == nil || msg.Evidence.Kind != session.EvidenceCitations {
		t.Fatalf("evidence = %+v, want citations", msg.Evidence)
	}
}

func TestDispatch_LedgerBoundTwentyOneTurns(t *testing.T) {
	e := newTestEngine(t)
	sess := session.New("gpt-3.5-turbo", 20)

	for i := 1; i <= 21; i++ {
		if _, err := e.Dispatch(context.Background(), sess, fmt.Sprintf("question number %d", i)); err != nil {
			t.Fatalf("turn %d failed: %v", i, err)
		}
	}

	if sess.HistoryLen() != 20 {
		t.Fatalf("HistoryLen = %d, want 20", sess.HistoryLen())
	}
	oldest := sess.History()[0]
	if oldest.User.Content != "question number 2" {
		t.Errorf("oldest turn = %q, want question number 2 (turn 1 evicted)", oldest.User.Content)
	}
	if sess.Totals().Requests != 21 {
		t.Errorf("totals keep counting evicted turns, Requests = %d, want 21", sess.Totals().Requests)
	}
}

// failingAdapter always errors during execution.
type failingAdapter struct{ target classify.Target }

func (f failingAdapter) Target() classify.Target { return f.target }
func (f failingAdapter) Execute(context.Context, string, *session.Session) (adapter.Result, error) {
	return adapter.Result{InputTokens: 7}, errors.New("backend unreachable")
}

func TestDispatch_AdapterFailureStillRecordsTurn(t *testing.T) {
	loader := pricing.NewLoader(filepath.Join(t.TempDir(), "pricing.json"))
	e := New(classify.New(), loader, failingAdapter{target: classify.TargetGeneral})
	sess := session.New("gpt-3.5-turbo", 20)

	msg, err := e.Dispatch(context.Background(), sess, "hello")

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %v, want *ExecutionError", err)
	}
	if execErr.Target != classify.TargetGeneral {
		t.Errorf("failed target = %s, want general", execErr.Target)
	}

	if msg == nil {
		t.Fatal("failed turn should still return the recorded assistant message")
	}
	if msg.Evidence == nil || msg.Evidence.Kind != session.EvidenceError {
		t.Fatalf("evidence = %+v, want an error marker", msg.Evidence)
	}
	if !strings.Contains(msg.Content, "backend unreachable") {
		t.Errorf("user-visible summary = %q, want the failure reason", msg.Content)
	}

	// The pair landed atomically and tokens consumed pre-failure metered.
	if sess.HistoryLen() != 1 {
		t.Fatalf("HistoryLen = %d, want 1", sess.HistoryLen())
	}
	if msg.Usage == nil || msg.Usage.InputTokens != 7 {
		t.Errorf("usage = %+v, want the 7 reported input tokens", msg.Usage)
	}
	if sess.Totals().InputTokens != 7 {
		t.Errorf("failed-but-metered turn not accumulated: %+v", sess.Totals())
	}
}

func TestDispatch_MissingAdapterFailsTurn(t *testing.T) {
	loader := pricing.NewLoader(filepath.Join(t.TempDir(), "pricing.json"))
	e := New(classify.New(), loader) // no adapters at all
	sess := session.New("gpt-3.5-turbo", 20)

	msg, err := e.Dispatch(context.Background(), sess, "hello")
	if err == nil {
		t.Fatal("expected an error with no adapters registered")
	}
	if !errors.Is(err, adapter.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured in chain", err)
	}
	if msg == nil || sess.HistoryLen() != 1 {
		t.Error("missing-adapter failure must still record the turn")
	}
}

func TestDispatch_UnpricedModelStillCompletes(t *testing.T) {
	e := newTestEngine(t)
	sess := session.New("some-future-model", 20)

	msg, err := e.Dispatch(context.Background(), sess, "Explain machine learning")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if msg.Usage.PricingSource != "unpriced" {
		t.Errorf("PricingSource = %q, want unpriced", msg.Usage.PricingSource)
	}
	if msg.Usage.TotalCost != 0 {
		t.Errorf("unpriced cost = %g, want 0", msg.Usage.TotalCost)
	}
	if !msg.Usage.Approximate {
		t.Error("unknown model token counts should be marked approximate")
	}
}
