// Package session holds per-conversation state: capability flags, the
// bounded history ledger, and running usage totals. Sessions never share
// state with each other; the pricing snapshot is the only process-wide
// resource and lives elsewhere.
package session

import (
	"time"

	"github.com/theirongolddev/promptroute/internal/usage"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// EvidenceKind tags what backs an assistant answer.
type EvidenceKind string

const (
	EvidenceNone      EvidenceKind = ""
	EvidenceCitations EvidenceKind = "citations"
	EvidenceSQL       EvidenceKind = "sql"
	EvidenceError     EvidenceKind = "error"
)

// Citation points at a document chunk that supported an answer.
type Citation struct {
	FileName string
	Score    float64
}

// Evidence is the target-specific backing attached to assistant messages:
// citations for document answers, the generated query for database
// answers, or an error marker for failed turns.
type Evidence struct {
	Kind      EvidenceKind
	Citations []Citation
	SQL       string
	RowCount  int
	Error     string
}

// Message is one entry in a session's history. Append-only; owned by the
// ledger it was appended to.
type Message struct {
	Role      Role
	Content   string
	Usage     *usage.Record
	Evidence  *Evidence
	Timestamp time.Time
}

// Turn is a user message paired with its assistant outcome. The ledger
// only ever holds whole turns; a user message is never recorded without
// its paired response.
type Turn struct {
	User      Message
	Assistant Message
}
