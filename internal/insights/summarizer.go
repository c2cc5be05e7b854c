// Package insights turns CRM snapshots into natural-language commentary.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/llm"
	"github.com/jonathan/gtm-agent/internal/prompts"
)

// Fallback texts returned instead of errors.
const (
	NotConfiguredMessage = "LLM analysis unavailable: no API key configured"
	failedPrefix         = "Analysis failed: "
)

// Summarizer produces commentary for a job. Implementations never fail; the
// returned text is always safe to embed in a message.
type Summarizer interface {
	Summarize(ctx context.Context, instruction string, data any) string
}

// LLMSummarizer sends a persona, an instruction and a JSON context to an LLM.
type LLMSummarizer struct {
	client   llm.Client
	tier     llm.ModelTier
	persona  string
	recorder activity.Recorder
}

var _ Summarizer = (*LLMSummarizer)(nil)

// NewLLMSummarizer creates a summarizer. A nil client yields the not-configured
// fallback on every call.
func NewLLMSummarizer(client llm.Client, recorder activity.Recorder) *LLMSummarizer {
	return &LLMSummarizer{
		client:   client,
		tier:     llm.TierStandard,
		persona:  prompts.MustGet(prompts.Persona),
		recorder: recorder,
	}
}

// Configured reports whether an LLM client is attached.
func (s *LLMSummarizer) Configured() bool {
	return s.client != nil
}

// Summarize implements Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, instruction string, data any) string {
	if s.client == nil {
		return NotConfiguredMessage
	}

	prompt, err := BuildPrompt(s.persona, instruction, data)
	if err != nil {
		return s.failed(ctx, err)
	}

	text, err := s.client.Complete(ctx, prompt, s.tier)
	if err != nil {
		return s.failed(ctx, err)
	}
	return strings.TrimSpace(text)
}

func (s *LLMSummarizer) failed(ctx context.Context, err error) string {
	if s.recorder != nil {
		s.recorder.Log(ctx, activity.CategoryError, fmt.Sprintf("LLM analysis error: %v", err), nil)
	}
	return failedPrefix + err.Error()
}

// BuildPrompt joins the persona, the instruction and the indented JSON context.
func BuildPrompt(persona, instruction string, data any) (string, error) {
	ctxJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode context: %w", err)
	}

	var sb strings.Builder
	if persona != "" {
		sb.WriteString(persona)
		sb.WriteString("\n\n")
	}
	sb.WriteString(instruction)
	sb.WriteString("\n\nContext Data:\n")
	sb.Write(ctxJSON)
	return sb.String(), nil
}
