package adapter

import (
	"context"

	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/session"
)

// systemPrompt frames the assistant for general turns.
const systemPrompt = "You are a helpful AI assistant. You can help users with " +
	"general questions, but you specialize in helping them work with documents " +
	"and databases. If users ask about documents or databases, suggest they " +
	"upload documents or connect to a database first."

// contextMessages is how much recent history rides along with a general
// completion request.
const contextMessages = 10

// ChatMessage is one message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion backend.
type CompletionRequest struct {
	Model    string
	Messages []ChatMessage
}

// CompletionResponse carries the answer and the backend's own token
// accounting when it reports one.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// CompletionClient is the boundary to the general completion backend.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// General answers from model knowledge via a completion client, carrying
// recent conversation history as context.
type General struct {
	client CompletionClient
}

// NewGeneral wraps a completion client as the general-knowledge adapter.
func NewGeneral(client CompletionClient) *General {
	return &General{client: client}
}

func (g *General) Target() classify.Target { return classify.TargetGeneral }

func (g *General) Execute(ctx context.Context, utterance string, sess *session.Session) (Result, error) {
	if g.client == nil {
		return Result{}, ErrNotConfigured
	}

	msgs := make([]ChatMessage, 0, contextMessages+2)
	msgs = append(msgs, ChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range sess.RecentMessages(contextMessages) {
		msgs = append(msgs, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, ChatMessage{Role: string(session.RoleUser), Content: utterance})

	resp, err := g.client.Complete(ctx, CompletionRequest{Model: sess.Model, Messages: msgs})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Answer:       resp.Content,
		Model:        sess.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}
