package anthropic

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growmesh/growmesh/provider"
)

// failingTransport makes every request fail at the HTTP layer, keeping the
// adapter tests offline.
type failingTransport struct{ err error }

func (t failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, t.err
}

func TestGenerate_SDKFailureMapsToProviderError(t *testing.T) {
	down := errors.New("transport down")
	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Transport: failingTransport{err: down}}),
	)
	p := NewFromClient(&client)

	_, err := p.Generate(context.Background(), provider.Request{Prompt: "write a headline"})
	require.Error(t, err)

	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "anthropic", perr.Provider)
	assert.False(t, perr.Retriable, "a transport failure is not a rate limit")
	require.NotNil(t, perr.Cause)
	assert.Contains(t, err.Error(), "transport down")
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited status", errors.New("POST: 429 Too Many Requests"), true},
		{"rate limit text", errors.New("rate limit exceeded"), true},
		{"overloaded", errors.New("overloaded_error: try again"), true},
		{"overload status", errors.New("529 service overloaded"), true},
		{"auth failure", errors.New("401 Unauthorized"), false},
		{"plain failure", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetriable(tt.err))
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "anthropic", New().Name())
}
