package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey is returned when a provider is constructed without credentials.
	ErrNoAPIKey = errors.New("API key is required")
	// ErrUnknownProvider is returned by NewClient for a provider it cannot build.
	ErrUnknownProvider = errors.New("unknown LLM provider")
)

// Client turns a prompt into text. The summarizer is its only caller.
type Client interface {
	Complete(ctx context.Context, prompt string, tier ModelTier) (string, error)
	Model(tier ModelTier) string
	Close() error
}

type factory func(ctx context.Context, config *Config, apiKey string) (Client, error)

var factories = map[Provider]factory{
	ProviderAnthropic: func(_ context.Context, config *Config, apiKey string) (Client, error) {
		return NewAnthropicClient(config, apiKey)
	},
	ProviderGemini: func(ctx context.Context, config *Config, apiKey string) (Client, error) {
		return NewGeminiClient(ctx, config, apiKey)
	},
}

// NewClient builds the client for config.Provider. A nil config means the
// Anthropic defaults.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	build, ok := factories[config.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, config.Provider)
	}
	return build(ctx, config, apiKey)
}
