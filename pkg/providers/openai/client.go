// Package openai adapts any OpenAI-compatible chat-completions endpoint
// to the providers.Provider interface.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"rvx-hq/relay/pkg/providers"
)

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	*providers.HTTPClient

	baseURL      string
	defaultModel string
}

// chatRequest is the wire format for chat completion requests.
type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []providers.Message `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	User        string              `json:"user,omitempty"`
}

// chatResponse is the wire format for chat completion responses.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage providers.TokenUsage `json:"usage"`
}

// New creates a client for the configured endpoint.
func New(config providers.Config) *Client {
	return &Client{
		HTTPClient:   providers.NewHTTPClient(config),
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		defaultModel: config.Model,
	}
}

// Complete performs one chat completion.
func (c *Client) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.Completion, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	wireReq := chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		User:        req.User,
	}

	var wireResp chatResponse
	url := c.baseURL + "/chat/completions"
	if err := c.DoJSON(ctx, http.MethodPost, url, wireReq, &wireResp); err != nil {
		return nil, err
	}

	if len(wireResp.Choices) == 0 {
		return nil, &providers.ParseError{
			Provider: c.Name(),
			Cause:    fmt.Errorf("response contained no choices"),
		}
	}

	return &providers.Completion{
		ID:      wireResp.ID,
		Model:   wireResp.Model,
		Content: wireResp.Choices[0].Message.Content,
		Usage:   wireResp.Usage,
	}, nil
}
