package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/theirongolddev/promptroute/internal/adapter"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient("sk-test-key", ts.URL)
}

func TestComplete_ParsesAnswerAndUsage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "gpt-3.5-turbo" {
			t.Errorf("model = %q", req.Model)
		}
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "Machine learning is..."}}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 17}
		}`))
	})

	resp, err := client.Complete(context.Background(), adapter.CompletionRequest{
		Model:    "gpt-3.5-turbo",
		Messages: []adapter.ChatMessage{{Role: "user", Content: "Explain machine learning"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "Machine learning is..." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.InputTokens != 42 || resp.OutputTokens != 17 {
		t.Errorf("usage = %d/%d, want 42/17", resp.InputTokens, resp.OutputTokens)
	}
}

func TestComplete_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := client.Complete(context.Background(), adapter.CompletionRequest{Model: "m"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestComplete_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := client.Complete(context.Background(), adapter.CompletionRequest{Model: "m"})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestNewClient_EmptyKey(t *testing.T) {
	if c := NewClient("", ""); c != nil {
		t.Error("NewClient with empty key should return nil")
	}
	if c := NewClient("   ", ""); c != nil {
		t.Error("NewClient with blank key should return nil")
	}
}

func TestSQLGen_CleansFences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "` + "```sql\\nSELECT COUNT(*) FROM customers\\n```" + `"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 8}
		}`))
	})

	gen := NewSQLGen(client, "gpt-3.5-turbo")
	query, err := gen.GenerateSQL(context.Background(), "How many customers?", "CREATE TABLE customers (id INTEGER)")
	if err != nil {
		t.Fatalf("GenerateSQL failed: %v", err)
	}
	if query != "SELECT COUNT(*) FROM customers" {
		t.Errorf("query = %q", query)
	}
}
