package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string // exact path, or a prefix when it ends in "/"
	Method string
	Limit  int // requests per Window; zero means unlimited
	Window time.Duration
	Burst  int // defaults to Limit
}

// LoadConfig reads the RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	return loadConfig(os.LookupEnv)
}

type lookupFunc func(key string) (string, bool)

func loadConfig(lookup lookupFunc) *Config {
	if !envOr(lookup, "RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    envOr(lookup, "RATE_LIMIT_DEFAULT_LIMIT", 1000, strconv.Atoi),
		DefaultWindow:   envOr(lookup, "RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: envOr(lookup, "RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		Whitelist:       clientSet(lookup, "RATE_LIMIT_WHITELIST"),
		Blacklist:       clientSet(lookup, "RATE_LIMIT_BLACKLIST"),
		EndpointConfigs: endpointOverrides(lookup, DefaultEndpointConfigs()),
	}
}

// endpointOverrides applies RATE_LIMIT_QUERY_LIMIT, RATE_LIMIT_TRIGGER_LIMIT
// and RATE_LIMIT_REPORT_LIMIT (requests per window) to the defaults.
func endpointOverrides(lookup lookupFunc, configs []EndpointConfig) []EndpointConfig {
	keys := map[string]string{
		"/api/query":         "RATE_LIMIT_QUERY_LIMIT",
		"/api/trigger/":      "RATE_LIMIT_TRIGGER_LIMIT",
		"/api/report/weekly": "RATE_LIMIT_REPORT_LIMIT",
	}
	for i := range configs {
		if key, ok := keys[configs[i].Path]; ok {
			configs[i].Limit = envOr(lookup, key, configs[i].Limit, strconv.Atoi)
		}
	}
	return configs
}

// DefaultEndpointConfigs returns the per-endpoint limits. Endpoints that
// reach the CRM or the LLM are limited hardest.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/api/trigger/", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/query", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/report/weekly", Method: "GET", Limit: 12, Window: time.Hour, Burst: 2},

		// Reads fall through to the default limit.
		// /health and /metrics are unlimited, see MatchEndpoint.
	}
}

// envOr parses the variable named key, falling back to def when it is unset
// or does not parse.
func envOr[T any](lookup lookupFunc, key string, def T, parse func(string) (T, error)) T {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// clientSet reads a comma-separated list of client IDs.
func clientSet(lookup lookupFunc, key string) map[string]bool {
	set := make(map[string]bool)
	raw, _ := lookup(key)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}
