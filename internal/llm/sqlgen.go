package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/promptroute/internal/adapter"
)

// sqlSystemPrompt instructs the model to emit exactly one SELECT.
const sqlSystemPrompt = "You translate natural-language questions into a single " +
	"read-only SQL query for the schema provided. Reply with only the SQL " +
	"statement: no prose, no markdown fences, SELECT or WITH statements only."

// SQLGen turns questions into SQL via the completion client. It satisfies
// the database adapter's generator boundary; query planning beyond prompt
// construction is the model's problem.
type SQLGen struct {
	client *Client
	model  string
}

// NewSQLGen builds a generator on top of the completion client.
func NewSQLGen(client *Client, model string) *SQLGen {
	return &SQLGen{client: client, model: model}
}

// GenerateSQL asks the model for a query against the given schema.
func (g *SQLGen) GenerateSQL(ctx context.Context, question, schema string) (string, error) {
	if g.client == nil {
		return "", errors.New("llm: no completion client for sql generation")
	}

	resp, err := g.client.Complete(ctx, adapter.CompletionRequest{
		Model: g.model,
		Messages: []adapter.ChatMessage{
			{Role: "system", Content: sqlSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Schema:\n%s\n\nQuestion: %s", schema, question)},
		},
	})
	if err != nil {
		return "", err
	}

	return cleanSQL(resp.Content), nil
}

// cleanSQL strips markdown fences and surrounding noise the model tends
// to add despite instructions.
func cleanSQL(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
