package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/session"
)

// SQLGenerator is the boundary to the NL-to-SQL backend: it turns a
// natural-language question into a query for the connected database. Its
// planning internals are outside this module.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string, schema string) (string, error)
}

// SchemaProvider describes the connected database to the generator.
type SchemaProvider interface {
	Schema(ctx context.Context) (string, error)
}

// Database translates a question into SQL via the generator, runs it
// against the connected database, and summarizes the rows. The generated
// query rides along as evidence.
type Database struct {
	gen    SQLGenerator
	db     *sql.DB
	schema SchemaProvider
}

// NewDatabase wires the NL-to-SQL generator and connection into the
// database adapter.
func NewDatabase(gen SQLGenerator, db *sql.DB, schema SchemaProvider) *Database {
	return &Database{gen: gen, db: db, schema: schema}
}

func (a *Database) Target() classify.Target { return classify.TargetDatabase }

func (a *Database) Execute(ctx context.Context, utterance string, sess *session.Session) (Result, error) {
	if a.gen == nil || a.db == nil {
		return Result{}, ErrNotConfigured
	}

	schema := ""
	if a.schema != nil {
		s, err := a.schema.Schema(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("describing schema: %w", err)
		}
		schema = s
	}

	query, err := a.gen.GenerateSQL(ctx, utterance, schema)
	if err != nil {
		return Result{}, fmt.Errorf("generating sql: %w", err)
	}
	if !isReadOnlyQuery(query) {
		return Result{}, fmt.Errorf("generated query is not read-only: %s", firstLine(query))
	}

	answer, rowCount, err := a.runQuery(ctx, query)
	if err != nil {
		// The query itself is still evidence of what was attempted.
		return Result{
			Evidence: session.Evidence{Kind: session.EvidenceSQL, SQL: query},
		}, fmt.Errorf("executing query: %w", err)
	}

	return Result{
		Answer: answer,
		Evidence: session.Evidence{
			Kind:     session.EvidenceSQL,
			SQL:      query,
			RowCount: rowCount,
		},
		Model: sess.Model,
	}, nil
}

// runQuery executes the generated SQL and renders an answer: a bare value
// for single-cell results, a row/column summary otherwise.
func (a *Database) runQuery(ctx context.Context, query string) (string, int, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return "", 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", 0, err
	}

	var results [][]string
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", 0, err
		}
		rendered := make([]string, len(cols))
		for i, v := range raw {
			rendered[i] = renderValue(v)
		}
		results = append(results, rendered)
	}
	if err := rows.Err(); err != nil {
		return "", 0, err
	}

	return summarize(results, cols), len(results), nil
}

// summarize turns result rows into a natural-language answer.
func summarize(results [][]string, cols []string) string {
	switch {
	case len(results) == 0:
		return "The query executed successfully but returned no results."
	case len(results) == 1 && len(cols) == 1:
		// A scalar answer stands on its own ("How many X" -> "10").
		return results[0][0]
	case len(results) == 1:
		return fmt.Sprintf("I found 1 record with %d columns.", len(cols))
	default:
		return fmt.Sprintf("I found %d records with %d columns.", len(results), len(cols))
	}
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// writeKeywords are statement keywords that mutate the database. Checked
// at parenthesis depth zero so column names and subqueries inside the
// CTE bodies don't trip the guard.
var writeKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "REPLACE": true,
	"CREATE": true, "DROP": true, "ALTER": true,
	"PRAGMA": true, "ATTACH": true, "DETACH": true, "VACUUM": true, "REINDEX": true,
}

// isReadOnlyQuery accepts only statements that read. The adapter never
// writes through a generated query. A SELECT/WITH prefix alone is not
// enough: SQLite allows WITH cte AS (...) DELETE/UPDATE/INSERT, so every
// keyword outside parentheses and string literals is checked, and a
// second stacked statement after ';' is rejected.
func isReadOnlyQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(q, "SELECT") && !strings.HasPrefix(q, "WITH") {
		return false
	}

	depth := 0
	var quote byte
	var word strings.Builder
	flush := func() bool {
		defer word.Reset()
		return !writeKeywords[word.String()]
	}

	for i := 0; i < len(q); i++ {
		c := q[i]

		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}

		isWordChar := c == '_' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isWordChar && word.Len() > 0 && !flush() {
			return false
		}

		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if strings.TrimSpace(q[i+1:]) != "" {
				return false
			}
		default:
			if isWordChar && depth == 0 {
				word.WriteByte(c)
			}
		}
	}
	return word.Len() == 0 || flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
