package adapter

import (
	"context"
	"fmt"
	"strings"
)

// DemoGenerator is a rule-based NL-to-SQL stand-in for offline use. It
// covers the handful of question shapes the sample schema invites; a real
// deployment plugs in an LLM-backed generator instead.
type DemoGenerator struct{}

func (DemoGenerator) GenerateSQL(_ context.Context, question string, _ string) (string, error) {
	q := strings.ToLower(question)

	table := "customers"
	if strings.Contains(q, "order") {
		table = "orders"
	}

	switch {
	case strings.Contains(q, "how many"), strings.Contains(q, "count"):
		return fmt.Sprintf("SELECT COUNT(*) FROM %s", table), nil
	case strings.Contains(q, "total") && table == "orders",
		strings.Contains(q, "revenue"):
		return "SELECT SUM(amount) FROM orders", nil
	case strings.Contains(q, "average") && table == "orders":
		return "SELECT AVG(amount) FROM orders", nil
	case strings.Contains(q, "city"), strings.Contains(q, "cities"):
		return "SELECT city, COUNT(*) FROM customers GROUP BY city ORDER BY COUNT(*) DESC", nil
	default:
		return fmt.Sprintf("SELECT * FROM %s LIMIT 10", table), nil
	}
}

// DemoCompletion is an offline completion client that answers with a
// canned acknowledgment. Token counts are left at zero so the accounting
// layer estimates them, same as any backend that reports no usage.
type DemoCompletion struct{}

func (DemoCompletion) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	last := ""
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	return CompletionResponse{
		Content: fmt.Sprintf("(demo) I would answer %q from general knowledge here. "+
			"Connect an API key to get real completions.", last),
	}, nil
}

// DemoDocuments is an offline retrieval engine returning a canned answer
// with a single citation.
type DemoDocuments struct{}

func (DemoDocuments) Query(_ context.Context, utterance string) (DocumentResponse, error) {
	return DocumentResponse{
		Answer: fmt.Sprintf("(demo) The uploaded documents don't mention %q. "+
			"Upload real documents to search them.", utterance),
		Sources: []DocumentSource{{FileName: "demo.txt", Score: 0.42}},
	}, nil
}
