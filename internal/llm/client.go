// Package llm provides a client for OpenAI-compatible chat completion
// endpoints, used as the backing for the general and NL-to-SQL adapters.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/theirongolddev/promptroute/internal/adapter"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	requestTimeout = 60 * time.Second
	maxBodySize    = 4 << 20 // 4 MB
)

var (
	// ErrUnauthorized indicates a missing or rejected API key.
	ErrUnauthorized = errors.New("llm: unauthorized (API key missing or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("llm: rate limited")
)

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a client. Returns nil if the key is empty; callers
// treat a nil client as "no completion backend attached".
func NewClient(apiKey, baseURL string) *Client {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type chatRequest struct {
	Model       string                `json:"model"`
	Messages    []adapter.ChatMessage `json:"messages"`
	Temperature float64               `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a chat completion request and returns the first choice
// along with the provider's token accounting.
func (c *Client) Complete(ctx context.Context, req adapter.CompletionRequest) (adapter.CompletionResponse, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: 0.7,
	})
	if err != nil {
		return adapter.CompletionResponse{}, fmt.Errorf("llm: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return adapter.CompletionResponse{}, fmt.Errorf("llm: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return adapter.CompletionResponse{}, fmt.Errorf("llm: completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return adapter.CompletionResponse{}, fmt.Errorf("llm: reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return adapter.CompletionResponse{}, ErrUnauthorized
	case http.StatusTooManyRequests:
		return adapter.CompletionResponse{}, ErrRateLimited
	default:
		return adapter.CompletionResponse{}, fmt.Errorf("llm: completion API returned HTTP %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return adapter.CompletionResponse{}, fmt.Errorf("llm: parsing response: %w", err)
	}
	if parsed.Error != nil {
		return adapter.CompletionResponse{}, fmt.Errorf("llm: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return adapter.CompletionResponse{}, errors.New("llm: response contained no choices")
	}

	return adapter.CompletionResponse{
		Content:      parsed.Choices[0].Message.Content,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}
