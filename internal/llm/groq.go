// Package llm implements the completion-service client. Groq exposes an
// OpenAI-compatible chat-completions API, so the client is a thin wrapper
// around openai-go with a custom base URL. Calls are single-shot: one system
// instruction plus one user turn, no streaming, no multi-turn context, no
// retries — a failed or malformed response is a hard error for the caller.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/studyshare/go-assist-backend/internal/config"
)

// ErrEmptyCompletion indicates the API answered successfully but the payload
// carried no usable message content.
var ErrEmptyCompletion = errors.New("completion response has no content")

// Client calls the Groq chat-completions endpoint.
type Client struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewClient constructs a Client from configuration. The base URL may point at
// any OpenAI-compatible endpoint, which is also how tests stub the upstream.
func NewClient(cfg config.LLMConfig) *Client {
	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
	)
	return &Client{
		client: client,
		model:  openai.ChatModel(cfg.Model),
	}
}

// Complete sends a single-turn chat completion and returns the generated
// text. It surfaces transport errors, non-success statuses, and responses
// missing the content field as errors; the caller decides how to degrade.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		}),
		Model: openai.F(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
