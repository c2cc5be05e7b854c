package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewClient(context.Background(), ConfigFor(ProviderGemini), "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewClient_DefaultsToAnthropic(t *testing.T) {
	client, err := NewClient(context.Background(), nil, "sk-test")
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	_, ok := client.(*AnthropicClient)
	assert.True(t, ok)
	assert.Equal(t, "claude-sonnet-4-20250514", client.Model(TierStandard))
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "openai"}, "sk-test")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), `"openai"`)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "Focus on Acme."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.BaseURL = srv.URL
	client, err := NewAnthropicClient(config, "sk-test")
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "What now?", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "Focus on Acme.", text)

	assert.Equal(t, "claude-sonnet-4-20250514", captured["model"])
	assert.Equal(t, float64(2000), captured["max_tokens"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestAnthropicClient_NoRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.BaseURL = srv.URL
	client, err := NewAnthropicClient(config, "sk-test")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "hi", TierStandard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic API error")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnthropicClient_NoModel(t *testing.T) {
	client, err := NewAnthropicClient(&Config{Provider: ProviderAnthropic, Models: map[ModelTier]string{}}, "sk-test")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "hi", TierAdvanced)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no model configured")
}
