// Package engine orchestrates one conversation turn: classify the
// utterance, execute it on exactly one backend, account tokens and cost
// against the active pricing snapshot, and record the completed turn in
// the session's ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/promptroute/internal/adapter"
	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/pricing"
	"github.com/theirongolddev/promptroute/internal/session"
	"github.com/theirongolddev/promptroute/internal/token"
	"github.com/theirongolddev/promptroute/internal/usage"
)

// ErrEmptyQuery rejects empty or whitespace-only utterances before they
// reach the classifier. Nothing is recorded for a rejected turn.
var ErrEmptyQuery = errors.New("engine: empty query")

// ExecutionError wraps an adapter failure. The turn is still recorded;
// the error surfaces so callers can tell the user what went wrong.
type ExecutionError struct {
	Target classify.Target
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("engine: %s execution failed: %v", e.Target, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Recorder is notified of every recorded turn. The transcript store
// implements it; a nil recorder is skipped.
type Recorder interface {
	RecordTurn(sessionID string, target classify.Target, t session.Turn) error
}

// Engine is the per-turn dispatcher. Safe for concurrent use across
// sessions; within a session the session lock serializes turns.
type Engine struct {
	classifier *classify.Classifier
	adapters   map[classify.Target]adapter.Adapter
	pricing    *pricing.Loader
	recorder   Recorder
}

// New builds an engine. Adapters lacking a backend may be omitted;
// dispatching to a missing target fails the turn.
func New(classifier *classify.Classifier, loader *pricing.Loader, adapters ...adapter.Adapter) *Engine {
	m := make(map[classify.Target]adapter.Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Target()] = a
	}
	return &Engine{
		classifier: classifier,
		adapters:   m,
		pricing:    loader,
	}
}

// SetRecorder attaches a transcript recorder for completed turns.
func (e *Engine) SetRecorder(r Recorder) { e.recorder = r }

// Pricing exposes the engine's pricing loader for the refresh and info
// command surfaces.
func (e *Engine) Pricing() *pricing.Loader { return e.pricing }

// Route returns the target the classifier would pick for an utterance.
// Classification is deterministic, so this matches what Dispatch does.
func (e *Engine) Route(utterance string, caps session.Capabilities) classify.Target {
	return e.classifier.Classify(utterance, caps)
}

// Dispatch runs one turn. On success it returns the recorded assistant
// message. On adapter failure the turn is still recorded with an error
// marker and whatever tokens were consumed, and
// the ExecutionError is returned alongside it. Only ErrEmptyQuery leaves
// the session untouched.
func (e *Engine) Dispatch(ctx context.Context, sess *session.Session, utterance string) (*session.Message, error) {
	if isBlank(utterance) {
		return nil, ErrEmptyQuery
	}

	sess.Lock()
	defer sess.Unlock()

	t := &turn{state: StateIdle}
	must(t.to(StateClassifying))
	target := e.classifier.Classify(utterance, sess.Capabilities)

	must(t.to(StateDispatching))
	a, ok := e.adapters[target]
	if !ok {
		must(t.to(StateFailed))
		execErr := &ExecutionError{Target: target, Err: adapter.ErrNotConfigured}
		msg := e.recordFailure(sess, target, utterance, execErr)
		return msg, execErr
	}

	must(t.to(StateExecuting))
	res, err := a.Execute(ctx, utterance, sess)
	if err != nil {
		must(t.to(StateFailed))
		execErr := &ExecutionError{Target: target, Err: err}
		// Tokens consumed before the failure (the prompt at minimum, when
		// the backend got far enough to see it) still get metered.
		res.Model = sess.Model
		msg := e.recordFailureWithUsage(sess, target, utterance, res, execErr)
		return msg, execErr
	}

	must(t.to(StateAccounting))
	rec := e.account(utterance, res)

	must(t.to(StateRecorded))
	now := time.Now()
	assistant := session.Message{
		Role:      session.RoleAssistant,
		Content:   res.Answer,
		Usage:     &rec,
		Timestamp: now,
	}
	if res.Evidence.Kind != session.EvidenceNone {
		ev := res.Evidence
		assistant.Evidence = &ev
	}
	e.record(sess, target, session.Turn{
		User:      session.Message{Role: session.RoleUser, Content: utterance, Timestamp: now},
		Assistant: assistant,
	})
	return &assistant, nil
}

// account builds the usage record for a completed execution. Backend
// token counts win when reported; otherwise the deterministic counter
// estimates from the visible text.
func (e *Engine) account(utterance string, res adapter.Result) usage.Record {
	inTok := res.InputTokens
	outTok := res.OutputTokens
	approx := false

	if inTok == 0 {
		n, a := token.CountApprox(utterance, res.Model)
		inTok, approx = n, approx || a
	}
	if outTok == 0 && res.Answer != "" {
		n, a := token.CountApprox(res.Answer, res.Model)
		outTok, approx = n, approx || a
	}

	rec := usage.Account(res.Model, inTok, outTok, e.pricing.Active())
	rec.Approximate = approx
	return rec
}

// recordFailure records a turn that never produced a result.
func (e *Engine) recordFailure(sess *session.Session, target classify.Target, utterance string, execErr *ExecutionError) *session.Message {
	return e.recordFailureWithUsage(sess, target, utterance, adapter.Result{Model: sess.Model}, execErr)
}

// recordFailureWithUsage degrades a failed execution into a recorded
// turn: the user message still gets its paired assistant outcome, with an
// error marker as evidence and a usage record covering only the tokens
// actually consumed (possibly zero).
func (e *Engine) recordFailureWithUsage(sess *session.Session, target classify.Target, utterance string, res adapter.Result, execErr *ExecutionError) *session.Message {
	// Only backend-reported counts are metered here: estimating a prompt
	// the backend may never have seen would overcharge the failed turn.
	rec := usage.Account(res.Model, res.InputTokens, res.OutputTokens, e.pricing.Active())

	ev := res.Evidence
	ev.Kind = session.EvidenceError
	ev.Error = execErr.Err.Error()

	now := time.Now()
	assistant := session.Message{
		Role:      session.RoleAssistant,
		Content:   fmt.Sprintf("Error processing %s query: %v", target, execErr.Err),
		Usage:     &rec,
		Evidence:  &ev,
		Timestamp: now,
	}
	e.record(sess, target, session.Turn{
		User:      session.Message{Role: session.RoleUser, Content: utterance, Timestamp: now},
		Assistant: assistant,
	})
	return &assistant
}

func (e *Engine) record(sess *session.Session, target classify.Target, t session.Turn) {
	sess.RecordTurn(t)
	if e.recorder != nil {
		// Transcript persistence is best effort; the in-memory ledger is
		// the source of truth for the conversation.
		_ = e.recorder.RecordTurn(sess.ID, target, t)
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// must panics on an illegal state transition. The transition table is
// fixed at compile time, so hitting this is a programming error.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
