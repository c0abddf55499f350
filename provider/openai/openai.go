// Package openai provides a provider.Provider wrapper for the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"strings"

	"github.com/openai/openai-go"

	"github.com/growmesh/growmesh/provider"
)

// Options configures the OpenAI provider adapter.
type Options struct {
	Model string
}

// Client wraps the OpenAI Chat Completions API behind the generic
// provider.Provider interface.
type Client struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI provider using the official client.
func New(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI provider from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{Model: openai.ChatModelGPT4oMini}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Generate implements provider.Provider. SDK failures are wrapped into
// *provider.ProviderError with rate limits marked retriable.
func (c *Client) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.opts.Model,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	})
	if err != nil {
		return provider.Response{}, provider.NewProviderError("openai", "chat completions call failed", isRetriable(err), err)
	}
	if len(resp.Choices) == 0 {
		return provider.Response{}, provider.NewProviderError("openai", "no choices returned", false, nil)
	}

	return provider.Response{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
		Model:      resp.Model,
	}, nil
}

// Name implements provider.Provider.
func (c *Client) Name() string { return "openai" }

// isRetriable classifies quota and availability failures worth retrying.
func isRetriable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "503")
}
