// Package config loads agent configuration from the environment and an optional
// JSON file, and validates it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults.
const (
	DefaultPort                = 5000
	DefaultLLMProvider         = "anthropic"
	DefaultLLMMaxTokens        = 2000
	DefaultHubSpotBaseURL      = "https://api.hubapi.com"
	DefaultActivityLogCapacity = 100
	DefaultStatusLogLimit      = 20
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

// Config is the agent configuration. Missing credentials are allowed: the
// corresponding feature degrades to a logged no-op.
type Config struct {
	Port int `json:"port,omitempty" validate:"min=1,max=65535"`

	// LLM
	LLMProvider     string `json:"llm_provider,omitempty" validate:"oneof=anthropic gemini"`
	LLMModel        string `json:"llm_model,omitempty"`
	LLMMaxTokens    int    `json:"llm_max_tokens,omitempty" validate:"min=1,max=64000"`
	LLMBaseURL      string `json:"llm_base_url,omitempty" validate:"omitempty,url"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`
	GeminiAPIKey    string `json:"gemini_api_key,omitempty"`

	// CRM
	HubSpotToken   string `json:"hubspot_token,omitempty"`
	HubSpotBaseURL string `json:"hubspot_base_url,omitempty" validate:"required,url"`

	// Chat webhook. "demo" or empty disables delivery.
	SlackWebhookURL string `json:"slack_webhook_url,omitempty" validate:"omitempty,url|eq_ignore_case=demo"`

	// Activity log
	ActivityLogCapacity int `json:"activity_log_capacity,omitempty" validate:"min=1,max=100000"`
	StatusLogLimit      int `json:"status_log_limit,omitempty" validate:"min=1,ltefield=ActivityLogCapacity"`

	// Scheduling and logging
	Timezone  string `json:"timezone,omitempty" validate:"omitempty,timezone"`
	LogLevel  string `json:"log_level,omitempty" validate:"oneof=debug info warn error"`
	LogFormat string `json:"log_format,omitempty" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                DefaultPort,
		LLMProvider:         DefaultLLMProvider,
		LLMMaxTokens:        DefaultLLMMaxTokens,
		HubSpotBaseURL:      DefaultHubSpotBaseURL,
		ActivityLogCapacity: DefaultActivityLogCapacity,
		StatusLogLimit:      DefaultStatusLogLimit,
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
	}
}

// FromEnv reads the recognised environment variables. Unset variables stay zero.
func FromEnv() Config {
	return Config{
		Port:                envInt("PORT"),
		LLMProvider:         strings.ToLower(os.Getenv("LLM_PROVIDER")),
		LLMModel:            os.Getenv("LLM_MODEL"),
		LLMMaxTokens:        envInt("LLM_MAX_TOKENS"),
		LLMBaseURL:          os.Getenv("LLM_BASE_URL"),
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		HubSpotToken:        os.Getenv("HUBSPOT_TOKEN"),
		HubSpotBaseURL:      os.Getenv("HUBSPOT_BASE_URL"),
		SlackWebhookURL:     os.Getenv("SLACK_WEBHOOK_URL"),
		ActivityLogCapacity: envInt("ACTIVITY_LOG_CAPACITY"),
		StatusLogLimit:      envInt("STATUS_LOG_LIMIT"),
		Timezone:            os.Getenv("SCHEDULE_TZ"),
		LogLevel:            strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogFormat:           strings.ToLower(os.Getenv("LOG_FORMAT")),
	}
}

// Load builds the effective configuration. Environment values win over the JSON
// file at path (optional), which wins over the defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := FromEnv()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = cfg.MergeWithDefaults(*fileCfg)
	}
	cfg = cfg.MergeWithDefaults(Default())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c Config) MergeWithDefaults(defaults Config) Config {
	result := c

	mergeString(&result.LLMProvider, defaults.LLMProvider)
	mergeString(&result.LLMModel, defaults.LLMModel)
	mergeString(&result.LLMBaseURL, defaults.LLMBaseURL)
	mergeString(&result.AnthropicAPIKey, defaults.AnthropicAPIKey)
	mergeString(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	mergeString(&result.HubSpotToken, defaults.HubSpotToken)
	mergeString(&result.HubSpotBaseURL, defaults.HubSpotBaseURL)
	mergeString(&result.SlackWebhookURL, defaults.SlackWebhookURL)
	mergeString(&result.Timezone, defaults.Timezone)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.LogFormat, defaults.LogFormat)

	mergeInt(&result.Port, defaults.Port)
	mergeInt(&result.LLMMaxTokens, defaults.LLMMaxTokens)
	mergeInt(&result.ActivityLogCapacity, defaults.ActivityLogCapacity)
	mergeInt(&result.StatusLogLimit, defaults.StatusLogLimit)

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// LLMAPIKey returns the key of the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.AnthropicAPIKey
}

// HasLLM reports whether the configured provider has a key.
func (c *Config) HasLLM() bool {
	return c.LLMAPIKey() != ""
}

// HasCRM reports whether a CRM token is set.
func (c *Config) HasCRM() bool {
	return c.HubSpotToken != ""
}

// HasWebhook reports whether chat delivery is enabled.
func (c *Config) HasWebhook() bool {
	u := strings.TrimSpace(c.SlackWebhookURL)
	return u != "" && !strings.EqualFold(u, "demo")
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.AnthropicAPIKey = mask(c.AnthropicAPIKey)
	c.GeminiAPIKey = mask(c.GeminiAPIKey)
	c.HubSpotToken = mask(c.HubSpotToken)
	if c.HasWebhook() {
		c.SlackWebhookURL = mask(c.SlackWebhookURL)
	}
	return c
}

func envInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1 // rejected by Validate
	}
	return n
}

// ValidationError lists every invalid field.
type ValidationError struct {
	Fields []FieldError
}

// FieldError is one invalid field.
type FieldError struct {
	Field string
	Rule  string
	Value any
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s failed %q (got %v)", f.Field, f.Rule, f.Value))
	}
	return "config error: " + strings.Join(parts, "; ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field values against their struct tags.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config error: %w", err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		value := fe.Value()
		if isSecret(fe.Field()) {
			value = "****"
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Value: value})
	}
	return out
}

func isSecret(field string) bool {
	switch field {
	case "AnthropicAPIKey", "GeminiAPIKey", "HubSpotToken", "SlackWebhookURL":
		return true
	}
	return false
}
