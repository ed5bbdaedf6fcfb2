// Package adapter defines the uniform boundary contract to the three
// execution backends (document retrieval, NL-to-SQL, general completion)
// and the thin implementations that normalize their results.
//
// The heavy machinery behind each adapter (embeddings and vector search,
// SQL generation, the completion model itself) lives outside this module
// behind small interfaces. Adapters translate an utterance plus session
// context into an answer, target-specific evidence, and raw token counts.
package adapter

import (
	"context"
	"errors"

	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/session"
)

// ErrNotConfigured is returned when an adapter's external collaborator is
// missing (no query engine, generator, or completion client attached).
var ErrNotConfigured = errors.New("adapter: execution backend not configured")

// Result is the normalized outcome of one adapter execution. Token counts
// are the backend's own numbers when it reports them; zero means
// unreported and leaves estimation to the accounting layer.
type Result struct {
	Answer       string
	Evidence     session.Evidence
	InputTokens  int
	OutputTokens int
	Model        string
}

// Adapter executes one turn against a single backend. Implementations
// must treat the call as a potentially slow network operation and honor
// ctx cancellation; the engine imposes no timeout of its own.
type Adapter interface {
	Target() classify.Target
	Execute(ctx context.Context, utterance string, sess *session.Session) (Result, error)
}
