package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/theirongolddev/promptroute/internal/usage"
)

// Capabilities are the attachment flags the classifier reads. They are
// set by the upload/connection collaborators and read-only to the
// dispatch path.
type Capabilities struct {
	HasDocumentIndex bool
	HasDatabase      bool
}

// Session is one user's ongoing conversation: capability flags, the
// bounded history ledger, and running usage totals. Turn processing is
// single-threaded per session; turnMu serializes turns so no two
// dispatches interleave. State reads are guarded separately by mu so the
// daemon can serve totals and history while a turn is in flight.
type Session struct {
	ID           string
	Model        string
	Capabilities Capabilities

	turnMu sync.Mutex
	mu     sync.RWMutex
	ledger *Ledger
	totals usage.Totals
}

// New creates a session with a fresh ID, the given default model, and a
// ledger bounded to capTurns turns.
func New(model string, capTurns int) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Model:  model,
		ledger: NewLedger(capTurns),
	}
}

// Lock serializes turn processing on this session. The engine holds the
// lock for the whole turn so states never interleave. Read accessors do
// not block on it; they take the state lock instead.
func (s *Session) Lock()   { s.turnMu.Lock() }
func (s *Session) Unlock() { s.turnMu.Unlock() }

// RecordTurn appends a completed user/assistant pair to the ledger and
// folds the assistant's usage into the session totals. The pair lands
// atomically: callers never observe a user message without its outcome.
func (s *Session) RecordTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Append(t)
	if t.Assistant.Usage != nil {
		usage.Accumulate(&s.totals, *t.Assistant.Usage)
	}
}

// History returns the recorded turns in order.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.All()
}

// RecentMessages returns up to n most recent messages for prompt context.
func (s *Session) RecentMessages(n int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Recent(n)
}

// Totals returns a copy of the session's running usage totals.
func (s *Session) Totals() usage.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

// HistoryLen returns the number of recorded turns.
func (s *Session) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Len()
}

// Reset clears history and totals. Capabilities and model are kept; the
// collaborators that attached them own their lifecycle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Clear()
	s.totals = usage.Totals{}
}
