// Package llm wraps the Anthropic and Gemini SDKs behind one Client so the
// summarizer can switch provider and model from configuration alone.
package llm

import "maps"

// ModelTier picks a model by how demanding the prompt is.
type ModelTier string

const (
	TierLite     ModelTier = "lite"
	TierStandard ModelTier = "standard" // job summaries and ad hoc questions
	TierAdvanced ModelTier = "advanced" // long-form writing such as the weekly report
)

var tiers = []ModelTier{TierLite, TierStandard, TierAdvanced}

// Provider names an LLM vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// DefaultMaxTokens is the completion budget per request.
const DefaultMaxTokens = 2000

var providerModels = map[Provider]map[ModelTier]string{
	ProviderAnthropic: {
		TierLite:     "claude-sonnet-4-20250514",
		TierStandard: "claude-sonnet-4-20250514",
		TierAdvanced: "claude-sonnet-4-20250514",
	},
	ProviderGemini: {
		TierLite:     "gemini-2.5-flash-lite",
		TierStandard: "gemini-2.5-flash",
		TierAdvanced: "gemini-2.5-pro",
	},
}

// Config selects a provider and the model used for each tier.
type Config struct {
	Provider  Provider
	Models    map[ModelTier]string
	MaxTokens int64
	BaseURL   string // empty uses the SDK default endpoint
}

// ConfigFor returns the stock models for provider. Anything other than
// Gemini gets Anthropic.
func ConfigFor(provider Provider) *Config {
	if _, ok := providerModels[provider]; !ok {
		provider = ProviderAnthropic
	}
	return &Config{
		Provider:  provider,
		Models:    maps.Clone(providerModels[provider]),
		MaxTokens: DefaultMaxTokens,
	}
}

// DefaultConfig is ConfigFor(ProviderAnthropic).
func DefaultConfig() *Config { return ConfigFor(ProviderAnthropic) }

// Model returns the model for tier. A tier with no entry borrows the
// standard model, then the lite one; "" means nothing is configured.
func (c *Config) Model(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if m := c.Models[t]; m != "" {
			return m
		}
	}
	return ""
}

// WithAllModels returns a copy of c that sends every tier to model.
func (c *Config) WithAllModels(model string) *Config {
	out := *c
	out.Models = make(map[ModelTier]string, len(tiers))
	for _, t := range tiers {
		out.Models[t] = model
	}
	return &out
}

func (c *Config) maxTokens() int64 {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}
