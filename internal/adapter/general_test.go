package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/theirongolddev/promptroute/internal/session"
)

// captureClient records the request it was given and returns a fixed reply.
type captureClient struct {
	req  CompletionRequest
	resp CompletionResponse
	err  error
}

func (c *captureClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	c.req = req
	return c.resp, c.err
}

func TestGeneral_BuildsContextFromHistory(t *testing.T) {
	client := &captureClient{resp: CompletionResponse{Content: "hi", InputTokens: 12, OutputTokens: 3}}
	g := NewGeneral(client)

	sess := session.New("gpt-4o-mini", 20)
	sess.RecordTurn(session.Turn{
		User:      session.Message{Role: session.RoleUser, Content: "earlier question"},
		Assistant: session.Message{Role: session.RoleAssistant, Content: "earlier answer"},
	})

	res, err := g.Execute(context.Background(), "new question", sess)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	msgs := client.req.Messages
	if len(msgs) != 4 {
		t.Fatalf("request carried %d messages, want system + 2 history + current", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Errorf("first message role = %q, want system", msgs[0].Role)
	}
	if msgs[1].Content != "earlier question" || msgs[2].Content != "earlier answer" {
		t.Error("history missing or out of order in completion request")
	}
	if msgs[3].Content != "new question" {
		t.Errorf("last message = %q, want the current utterance", msgs[3].Content)
	}
	if client.req.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q, want session model", client.req.Model)
	}

	if res.InputTokens != 12 || res.OutputTokens != 3 {
		t.Errorf("backend token counts not propagated: %+v", res)
	}
	if res.Evidence.Kind != session.EvidenceNone {
		t.Errorf("general answers carry no evidence, got kind %q", res.Evidence.Kind)
	}
}

func TestGeneral_ClientErrorPropagates(t *testing.T) {
	wantErr := errors.New("upstream down")
	g := NewGeneral(&captureClient{err: wantErr})

	_, err := g.Execute(context.Background(), "q", session.New("m", 20))
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want the client error", err)
	}
}

func TestDocument_MapsSourcesToCitations(t *testing.T) {
	d := NewDocument(DemoDocuments{})

	res, err := d.Execute(context.Background(), "what is in the report?", session.New("m", 20))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Evidence.Kind != session.EvidenceCitations {
		t.Fatalf("Evidence.Kind = %q, want citations", res.Evidence.Kind)
	}
	if len(res.Evidence.Citations) != 1 || res.Evidence.Citations[0].FileName != "demo.txt" {
		t.Errorf("citations = %+v, want one demo.txt citation", res.Evidence.Citations)
	}
}

func TestAdapters_NotConfigured(t *testing.T) {
	sess := session.New("m", 20)
	ctx := context.Background()

	if _, err := NewGeneral(nil).Execute(ctx, "q", sess); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("general: err = %v, want ErrNotConfigured", err)
	}
	if _, err := NewDocument(nil).Execute(ctx, "q", sess); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("document: err = %v, want ErrNotConfigured", err)
	}
}
