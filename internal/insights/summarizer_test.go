package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubClient) Complete(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *stubClient) Model(llm.ModelTier) string { return "stub" }

func (s *stubClient) Close() error { return nil }

func TestSummarize_NotConfigured(t *testing.T) {
	store := activity.NewStore(10)
	s := NewLLMSummarizer(nil, store)

	assert.False(t, s.Configured())
	assert.Equal(t, NotConfiguredMessage, s.Summarize(context.Background(), "anything", nil))
	assert.Equal(t, 0, store.Len())
}

func TestSummarize_Success(t *testing.T) {
	client := &stubClient{reply: "  Call Acme first.\n"}
	s := NewLLMSummarizer(client, activity.NewStore(10))

	got := s.Summarize(context.Background(), "Prioritise leads.", map[string]any{"total_count": 2})
	assert.Equal(t, "Call Acme first.", got)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "GTM analyst")
	assert.Contains(t, prompt, "Prioritise leads.\n\nContext Data:\n{\n  \"total_count\": 2\n}")
}

func TestSummarize_Failure(t *testing.T) {
	store := activity.NewStore(10)
	s := NewLLMSummarizer(&stubClient{err: errors.New("rate limited")}, store)

	got := s.Summarize(context.Background(), "x", nil)
	assert.Equal(t, "Analysis failed: rate limited", got)

	_, entries := store.Snapshot(0)
	require.Len(t, entries, 1)
	assert.Equal(t, activity.CategoryError, entries[0].Category)
}

func TestSummarize_UnencodableContext(t *testing.T) {
	client := &stubClient{reply: "unused"}
	s := NewLLMSummarizer(client, activity.NewStore(10))

	got := s.Summarize(context.Background(), "x", map[string]any{"ch": make(chan int)})
	assert.True(t, strings.HasPrefix(got, "Analysis failed: "))
	assert.Empty(t, client.prompts)
}

func TestBuildPrompt_NoPersona(t *testing.T) {
	prompt, err := BuildPrompt("", "Explain.", []int{1})
	require.NoError(t, err)
	assert.Equal(t, "Explain.\n\nContext Data:\n[\n  1\n]", prompt)
}
