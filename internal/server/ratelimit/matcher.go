package ratelimit

import (
	"net/http"
	"strings"
)

var unlimited = EndpointConfig{}

// MatchEndpoint returns the configuration that applies to a request, or nil
// when the default limit applies. Exact paths win over prefixes; a config path
// ending in "/" matches by prefix, so "/api/trigger/" covers
// "/api/trigger/deal_health".
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodGet && (path == "/health" || path == "/metrics") {
		u := unlimited
		return &u
	}

	var prefix *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if prefix == nil && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			prefix = c
		}
	}
	return prefix
}
