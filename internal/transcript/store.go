// Package transcript provides a SQLite-backed record of completed turns
// and their usage, surviving across process restarts. The in-memory
// ledger stays the conversation's source of truth; this store serves the
// history command and the daemon's reporting endpoints.
package transcript

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/session"
	"github.com/theirongolddev/promptroute/internal/usage"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store persists recorded turns.
type Store struct {
	db *sql.DB
}

// Open opens or creates the transcript database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating transcript dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening transcript db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating transcript schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory store, for tests and demo sessions.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening transcript db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating transcript schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordTurn persists one completed turn. Satisfies the engine's
// Recorder boundary.
func (s *Store) RecordTurn(sessionID string, target classify.Target, t session.Turn) error {
	var (
		kind, sqlText, errText, model, source string
		citations                             int
		inTok, outTok                         int
		inCost, outCost, totalCost            float64
		approx                                int
	)
	if ev := t.Assistant.Evidence; ev != nil {
		kind = string(ev.Kind)
		sqlText = ev.SQL
		errText = ev.Error
		citations = len(ev.Citations)
	}
	if u := t.Assistant.Usage; u != nil {
		model = u.Model
		source = u.PricingSource
		inTok, outTok = u.InputTokens, u.OutputTokens
		inCost, outCost, totalCost = u.InputCost, u.OutputCost, u.TotalCost
		if u.Approximate {
			approx = 1
		}
	}

	_, err := s.db.Exec(`INSERT INTO turns
		(session_id, recorded_at, target, user_content, assistant_content,
		 evidence_kind, evidence_sql, evidence_error, citation_count,
		 model, input_tokens, output_tokens, input_cost, output_cost, total_cost,
		 pricing_source, approximate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, t.Assistant.Timestamp.UTC().Format(time.RFC3339), target.String(),
		t.User.Content, t.Assistant.Content,
		kind, sqlText, errText, citations,
		model, inTok, outTok, inCost, outCost, totalCost, source, approx,
	)
	if err != nil {
		return fmt.Errorf("recording turn: %w", err)
	}
	return nil
}

// Row is one persisted turn.
type Row struct {
	ID               int64
	SessionID        string
	RecordedAt       time.Time
	Target           string
	UserContent      string
	AssistantContent string
	EvidenceKind     string
	EvidenceSQL      string
	EvidenceError    string
	Model            string
	InputTokens      int
	OutputTokens     int
	TotalCost        float64
	PricingSource    string
}

// Recent returns up to limit most recent turns, newest first. An empty
// sessionID spans all sessions.
func (s *Store) Recent(sessionID string, limit int) ([]Row, error) {
	query := `SELECT id, session_id, recorded_at, target, user_content, assistant_content,
		evidence_kind, evidence_sql, evidence_error, model,
		input_tokens, output_tokens, total_cost, pricing_source
		FROM turns`
	args := []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var r Row
		var recordedAt string
		var kind, sqlText, errText, model, source sql.NullString
		if err := rows.Scan(&r.ID, &r.SessionID, &recordedAt, &r.Target,
			&r.UserContent, &r.AssistantContent,
			&kind, &sqlText, &errText, &model,
			&r.InputTokens, &r.OutputTokens, &r.TotalCost, &source); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		r.EvidenceKind = kind.String
		r.EvidenceSQL = sqlText.String
		r.EvidenceError = errText.String
		r.Model = model.String
		r.PricingSource = source.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionTotals aggregates persisted usage for one session.
func (s *Store) SessionTotals(sessionID string) (usage.Totals, error) {
	var t usage.Totals
	err := s.db.QueryRow(`SELECT
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0),
		COALESCE(SUM(total_cost), 0),
		COUNT(*)
		FROM turns WHERE session_id = ?`, sessionID).
		Scan(&t.InputTokens, &t.OutputTokens, &t.TotalCost, &t.Requests)
	if err != nil {
		return usage.Totals{}, fmt.Errorf("aggregating session totals: %w", err)
	}
	return t, nil
}

// TargetCounts returns how many persisted turns went to each target.
func (s *Store) TargetCounts() (map[string]int, error) {
	rows, err := s.db.Query("SELECT target, COUNT(*) FROM turns GROUP BY target")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var target string
		var n int
		if err := rows.Scan(&target, &n); err != nil {
			return nil, err
		}
		out[target] = n
	}
	return out, rows.Err()
}
