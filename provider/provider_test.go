package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_CannedResponses(t *testing.T) {
	p := NewMockProvider().WithResponse("blog post", "ten ways to grow")

	resp, err := p.Generate(context.Background(), Request{Prompt: "Write a blog post about onboarding."})
	require.NoError(t, err)
	assert.Equal(t, "ten ways to grow", resp.Text)
	assert.Equal(t, "mock", resp.Model)

	resp, err = p.Generate(context.Background(), Request{Prompt: "something unmatched"})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "something unmatched")
	assert.Equal(t, 2, p.Calls())
}

func TestMockProvider_FailWithWrapsProviderError(t *testing.T) {
	cause := errors.New("quota exhausted")
	p := NewMockProvider().FailWith(cause)

	_, err := p.Generate(context.Background(), Request{Prompt: "anything"})
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mock", perr.Provider)
	assert.True(t, perr.Retriable)
	assert.ErrorIs(t, err, cause, "the original failure must stay reachable through the wrapper")
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestMockProvider_CancelledContext(t *testing.T) {
	p := NewMockProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{Prompt: "anything"})
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.False(t, perr.Retriable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.Calls(), "a cancelled call never counts as an attempt")
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewProviderError("anthropic", "messages api call failed", true, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), "connection reset")

	bare := NewProviderError("openai", "no choices returned", false, nil)
	assert.Nil(t, errors.Unwrap(bare))
	assert.Contains(t, bare.Error(), "no choices returned")
}
