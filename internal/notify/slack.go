// Package notify delivers messages to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/gtm-agent/internal/activity"
)

// DefaultTimeout bounds a single webhook post.
const DefaultTimeout = 10 * time.Second

// DemoWebhook is the webhook value that disables delivery.
const DemoWebhook = "demo"

// Block is a Slack Block Kit element.
type Block map[string]any

// Header builds a plain-text header block.
func Header(text string) Block {
	return Block{
		"type": "header",
		"text": map[string]string{"type": "plain_text", "text": text},
	}
}

// Section builds a markdown section block.
func Section(markdown string) Block {
	return Block{
		"type": "section",
		"text": map[string]string{"type": "mrkdwn", "text": markdown},
	}
}

// Notifier posts a message. It reports delivery and never fails.
type Notifier interface {
	Notify(ctx context.Context, text string, blocks []Block) bool
}

// Slack posts to an incoming webhook.
type Slack struct {
	webhookURL string
	http       *http.Client
	recorder   activity.Recorder
}

var _ Notifier = (*Slack)(nil)

// NewSlack creates a notifier. An empty URL or DemoWebhook enables demo mode.
func NewSlack(webhookURL string, recorder activity.Recorder) *Slack {
	return &Slack{
		webhookURL: strings.TrimSpace(webhookURL),
		http:       &http.Client{Timeout: DefaultTimeout},
		recorder:   recorder,
	}
}

// WithHTTPClient replaces the HTTP client. Used by tests.
func (s *Slack) WithHTTPClient(c *http.Client) *Slack {
	s.http = c
	return s
}

// DemoMode reports whether deliveries are only logged.
func (s *Slack) DemoMode() bool {
	return IsDemo(s.webhookURL)
}

// IsDemo reports whether a webhook value disables delivery.
func IsDemo(webhookURL string) bool {
	u := strings.TrimSpace(webhookURL)
	return u == "" || strings.EqualFold(u, DemoWebhook)
}

type payload struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Notify implements Notifier.
func (s *Slack) Notify(ctx context.Context, text string, blocks []Block) bool {
	if s.DemoMode() {
		s.recorder.Log(ctx, activity.CategorySlack, "Skipped (no webhook configured)", map[string]any{"text": text})
		return true
	}

	if err := s.post(ctx, payload{Text: text, Blocks: blocks}); err != nil {
		s.recorder.Log(ctx, activity.CategoryError, fmt.Sprintf("Slack delivery failed: %v", err), nil)
		return false
	}

	s.recorder.Increment(ctx, activity.AlertsSent, 1)
	s.recorder.Log(ctx, activity.CategorySlack, "Message sent successfully", nil)
	return true
}

func (s *Slack) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
