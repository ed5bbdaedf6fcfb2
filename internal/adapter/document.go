package adapter

import (
	"context"

	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/session"
)

// DocumentSource is one retrieved chunk backing a document answer.
type DocumentSource struct {
	FileName string
	Score    float64
}

// DocumentResponse is what the retrieval engine returns for a query.
type DocumentResponse struct {
	Answer       string
	Sources      []DocumentSource
	InputTokens  int
	OutputTokens int
}

// QueryEngine is the boundary to the document retrieval backend. Index
// construction, chunking, and embedding all live behind it.
type QueryEngine interface {
	Query(ctx context.Context, utterance string) (DocumentResponse, error)
}

// Document answers from the uploaded document corpus and attaches the
// retrieved sources as citations.
type Document struct {
	engine QueryEngine
}

// NewDocument wraps a retrieval query engine as the document adapter.
func NewDocument(engine QueryEngine) *Document {
	return &Document{engine: engine}
}

func (d *Document) Target() classify.Target { return classify.TargetDocument }

func (d *Document) Execute(ctx context.Context, utterance string, sess *session.Session) (Result, error) {
	if d.engine == nil {
		return Result{}, ErrNotConfigured
	}

	resp, err := d.engine.Query(ctx, utterance)
	if err != nil {
		return Result{}, err
	}

	citations := make([]session.Citation, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		citations = append(citations, session.Citation{FileName: src.FileName, Score: src.Score})
	}

	return Result{
		Answer: resp.Answer,
		Evidence: session.Evidence{
			Kind:      session.EvidenceCitations,
			Citations: citations,
		},
		Model:        sess.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}
