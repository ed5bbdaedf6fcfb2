package session

// DefaultHistoryCap is the default ledger capacity in turns.
const DefaultHistoryCap = 20

// Ledger is the bounded, ordered conversation history. Capacity is
// counted in turns; eviction is strict FIFO and always removes whole
// turns so no user message is ever orphaned from its response.
type Ledger struct {
	cap   int
	turns []Turn
}

// NewLedger creates a ledger bounded to capTurns turns. Non-positive
// capacities get DefaultHistoryCap.
func NewLedger(capTurns int) *Ledger {
	if capTurns <= 0 {
		capTurns = DefaultHistoryCap
	}
	return &Ledger{cap: capTurns}
}

// Cap returns the ledger capacity in turns.
func (l *Ledger) Cap() int { return l.cap }

// Len returns the number of recorded turns.
func (l *Ledger) Len() int { return len(l.turns) }

// Append records one complete turn and trims to capacity.
func (l *Ledger) Append(t Turn) {
	l.turns = append(l.turns, t)
	l.TrimToCapacity()
}

// TrimToCapacity evicts the oldest turns until the ledger fits its cap.
// Chronological order of the remainder is preserved.
func (l *Ledger) TrimToCapacity() {
	if len(l.turns) <= l.cap {
		return
	}
	drop := len(l.turns) - l.cap
	remaining := make([]Turn, len(l.turns)-drop)
	copy(remaining, l.turns[drop:])
	l.turns = remaining
}

// All returns the recorded turns in order. The slice is a copy; mutating
// it does not affect the ledger.
func (l *Ledger) All() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Messages flattens the ledger into the ordered message sequence
// (user, assistant, user, assistant, ...).
func (l *Ledger) Messages() []Message {
	out := make([]Message, 0, len(l.turns)*2)
	for _, t := range l.turns {
		out = append(out, t.User, t.Assistant)
	}
	return out
}

// Recent returns up to n of the most recent messages, oldest first.
func (l *Ledger) Recent(n int) []Message {
	msgs := l.Messages()
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs
}

// Clear drops all recorded turns.
func (l *Ledger) Clear() {
	l.turns = nil
}
