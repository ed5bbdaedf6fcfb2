// Package classify picks the execution target for a turn: the document
// index, the connected database, or general completion.
package classify

import (
	"strings"

	"github.com/theirongolddev/promptroute/internal/session"
)

// Target is the closed set of execution backends. Decided once per turn,
// never revisited.
type Target int

const (
	TargetGeneral Target = iota
	TargetDocument
	TargetDatabase
)

func (t Target) String() string {
	switch t {
	case TargetDocument:
		return "document"
	case TargetDatabase:
		return "database"
	default:
		return "general"
	}
}

// ParseTarget maps a target name back to its Target value.
func ParseTarget(s string) (Target, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "document":
		return TargetDocument, true
	case "database":
		return TargetDatabase, true
	case "general":
		return TargetGeneral, true
	}
	return TargetGeneral, false
}

// DefaultDatabaseKeywords signal "about my data/tables/records" phrasing.
var DefaultDatabaseKeywords = []string{
	"database", "table", "sql", "query", "select", "from", "where",
	"join", "count", "sum", "average", "data", "records", "rows",
	"columns", "schema", "postgres", "postgresql",
}

// DefaultDocumentKeywords signal "about my documents" phrasing.
var DefaultDocumentKeywords = []string{
	"document", "file", "pdf", "text", "uploaded", "content",
	"what does the document say", "in the file", "according to",
}

// Classifier routes an utterance to a target given the session's
// capabilities. Deterministic: identical inputs always yield the same
// target. The keyword lists are a pluggable tie-break policy; callers can
// override them from config.
type Classifier struct {
	databaseKeywords []string
	documentKeywords []string
}

// New returns a classifier with the default keyword signals.
func New() *Classifier {
	return &Classifier{
		databaseKeywords: DefaultDatabaseKeywords,
		documentKeywords: DefaultDocumentKeywords,
	}
}

// NewWithKeywords returns a classifier with custom signal lists. Empty
// lists fall back to the defaults.
func NewWithKeywords(database, document []string) *Classifier {
	c := New()
	if len(database) > 0 {
		c.databaseKeywords = database
	}
	if len(document) > 0 {
		c.documentKeywords = document
	}
	return c
}

// Classify picks the target for an utterance. Policy, in priority order:
//
//  1. Neither capability attached: General. Nothing else to offer.
//  2. Exactly one capability attached: that capability, unconditionally.
//  3. Both attached: keyword signals decide; the side with more hits on
//     the lowercased utterance wins. Tie or no signal defaults to General,
//     the least side-effecting choice.
//
// Empty utterances never reach the classifier; the engine rejects them
// before dispatch.
func (c *Classifier) Classify(utterance string, caps session.Capabilities) Target {
	switch {
	case !caps.HasDocumentIndex && !caps.HasDatabase:
		return TargetGeneral
	case caps.HasDatabase && !caps.HasDocumentIndex:
		return TargetDatabase
	case caps.HasDocumentIndex && !caps.HasDatabase:
		return TargetDocument
	}

	lower := strings.ToLower(utterance)
	dbScore := countHits(lower, c.databaseKeywords)
	docScore := countHits(lower, c.documentKeywords)

	switch {
	case dbScore > docScore:
		return TargetDatabase
	case docScore > dbScore:
		return TargetDocument
	default:
		return TargetGeneral
	}
}

func countHits(lower string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}
