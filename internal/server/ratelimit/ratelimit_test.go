package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoints ...EndpointConfig) *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		EndpointConfigs: endpoints,
	}
}

// fixedClock lets tests move time without sleeping.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(cfg *Config) (*Limiter, *fixedClock) {
	clock := &fixedClock{t: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.now
	return l, clock
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(testConfig(EndpointConfig{
		Path: "/api/query", Method: "POST", Limit: 60, Window: time.Hour, Burst: 3,
	}))
	defer l.Stop()

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("1.2.3.4", "/api/query", "POST")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 60, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("1.2.3.4", "/api/query", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	// 60 per hour refills one token per minute.
	assert.InDelta(t, time.Minute.Seconds(), info.RetryAfter.Seconds(), 1)
	assert.True(t, info.ResetTime.After(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)))
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(testConfig(EndpointConfig{
		Path: "/api/query", Method: "POST", Limit: 60, Window: time.Minute, Burst: 1,
	}))
	defer l.Stop()

	allowed, _ := l.Allow("c", "/api/query", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("c", "/api/query", "POST")
	require.False(t, allowed)

	clock.advance(1100 * time.Millisecond)
	allowed, _ = l.Allow("c", "/api/query", "POST")
	assert.True(t, allowed)
}

func TestLimiter_ClientsAreIsolated(t *testing.T) {
	l, _ := newTestLimiter(testConfig(EndpointConfig{
		Path: "/api/query", Method: "POST", Limit: 10, Window: time.Hour, Burst: 1,
	}))
	defer l.Stop()

	allowed, _ := l.Allow("a", "/api/query", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("a", "/api/query", "POST")
	require.False(t, allowed)

	allowed, _ = l.Allow("b", "/api/query", "POST")
	assert.True(t, allowed)
}

func TestLimiter_PrefixRoutesShareBucket(t *testing.T) {
	l, _ := newTestLimiter(testConfig(EndpointConfig{
		Path: "/api/trigger/", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2,
	}))
	defer l.Stop()

	allowed, _ := l.Allow("c", "/api/trigger/deal_health", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("c", "/api/trigger/lead_score", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("c", "/api/trigger/morning_brief", "POST")
	assert.False(t, allowed)
}

func TestLimiter_HealthAndMetricsUnlimited(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 1
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		require.True(t, allowed)
		allowed, _ = l.Allow("c", "/metrics", "GET")
		require.True(t, allowed)
	}

	allowed, _ := l.Allow("c", "/api/status", "GET")
	require.True(t, allowed)
	allowed, _ = l.Allow("c", "/api/status", "GET")
	assert.False(t, allowed)
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 1
	cfg.Whitelist["10.0.0.1"] = true
	cfg.Blacklist["10.0.0.2"] = true
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/api/status", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.2", "/api/status", "GET")
	assert.False(t, allowed)

	off := NewLimiter(&Config{Enabled: false})
	defer off.Stop()
	for i := 0; i < 5; i++ {
		allowed, _ := off.Allow("x", "/api/query", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_CleanupDropsStaleBuckets(t *testing.T) {
	l, clock := newTestLimiter(testConfig())
	defer l.Stop()

	l.Allow("old", "/api/status", "GET")
	clock.advance(2 * time.Hour)
	l.Allow("new", "/api/status", "GET")

	l.cleanupBuckets()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
	_, ok := l.buckets["new:default"]
	assert.True(t, ok)
}

func TestLimiter_UnconfiguredPathsShareClientBucket(t *testing.T) {
	cfg := testConfig(EndpointConfig{Path: "/api/query", Method: "POST", Limit: 60, Window: time.Hour, Burst: 5})
	cfg.DefaultLimit = 3
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("9.9.9.9", fmt.Sprintf("/random/%d", i), "GET")
		require.True(t, allowed, "request %d", i+1)
	}
	allowed, _ := l.Allow("9.9.9.9", "/another/path", "GET")
	assert.False(t, allowed, "default budget is per client, not per path")

	allowed, _ = l.Allow("9.9.9.9", "/api/query", "POST")
	assert.True(t, allowed, "configured routes keep their own bucket")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 2)
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(testConfig(EndpointConfig{
		Path: "/api/query", Method: "POST", Limit: 10, Window: time.Hour, Burst: 10,
	}))
	defer l.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/api/query", "POST"); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, granted)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantPath     string
		wantNil      bool
		wantLimit    int
	}{
		{path: "/api/query", method: "POST", wantPath: "/api/query", wantLimit: 30},
		{path: "/api/trigger/deal_health", method: "POST", wantPath: "/api/trigger/", wantLimit: 20},
		{path: "/api/report/weekly", method: "GET", wantPath: "/api/report/weekly", wantLimit: 12},
		{path: "/api/query", method: "GET", wantNil: true},
		{path: "/api/status", method: "GET", wantNil: true},
		{path: "/health", method: "GET", wantPath: "", wantLimit: 0},
		{path: "/metrics", method: "GET", wantPath: "", wantLimit: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := LoadConfig()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 1000, cfg.DefaultLimit)
		assert.Equal(t, time.Minute, cfg.DefaultWindow)
		assert.Len(t, cfg.EndpointConfigs, 3)
	})

	t.Run("disabled", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_ENABLED", "false")
		assert.False(t, LoadConfig().Enabled)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_QUERY_LIMIT", "7")
		t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")
		cfg := LoadConfig()
		q := MatchEndpoint("/api/query", "POST", cfg.EndpointConfigs)
		require.NotNil(t, q)
		assert.Equal(t, 7, q.Limit)
		assert.True(t, cfg.Whitelist["10.0.0.2"])
	})
}

func TestLoadConfig_IgnoresUnparseableValues(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":  "lots",
		"RATE_LIMIT_DEFAULT_WINDOW": "90s",
		"RATE_LIMIT_REPORT_LIMIT":   " 4 ",
		"RATE_LIMIT_BLACKLIST":      ",,10.9.9.9,",
	}
	cfg := loadConfig(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	assert.Equal(t, 1000, cfg.DefaultLimit)
	assert.Equal(t, 90*time.Second, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"10.9.9.9": true}, cfg.Blacklist)
	assert.Empty(t, cfg.Whitelist)

	for _, ec := range cfg.EndpointConfigs {
		if ec.Path == "/api/report/weekly" {
			assert.Equal(t, 4, ec.Limit)
		}
	}
}
