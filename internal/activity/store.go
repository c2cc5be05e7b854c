package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonathan/gtm-agent/internal/observability"
	"github.com/oklog/ulid/v2"
)

// DefaultCapacity is the number of entries kept before the oldest are evicted.
const DefaultCapacity = 100

// Recorder is the write/read surface that jobs, clients and handlers depend on.
type Recorder interface {
	// Log appends an entry at the head of the log.
	Log(ctx context.Context, category Category, message string, data any)
	// Increment adds delta to a counter. Non-positive deltas are ignored.
	Increment(ctx context.Context, counter Counter, delta int)
	// MarkRun records the last run time of a job.
	MarkRun(job string, at time.Time)
	// Snapshot returns the counters and up to limit entries, newest first.
	Snapshot(limit int) (Metrics, []Entry)
}

// Store is a mutex-guarded ring buffer of entries plus counters.
type Store struct {
	mu      sync.Mutex
	buf     []Entry
	next    int // slot the next entry is written to
	size    int
	metrics Metrics
	now     func() time.Time
	logger  *slog.Logger
	entropy *ulid.MonotonicEntropy
}

// NewStore creates a store that keeps at most capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	now := time.Now
	return &Store{
		buf: make([]Entry, capacity),
		metrics: Metrics{
			LastRun:   make(map[string]time.Time),
			StartedAt: now(),
		},
		now:     now,
		logger:  slog.Default(),
		entropy: ulid.Monotonic(ulid.DefaultEntropy(), 0),
	}
}

// WithLogger sets the slog logger entries are mirrored to.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.metrics.StartedAt = now()
	return s
}

// Log appends an entry and mirrors it to the structured logger.
func (s *Store) Log(ctx context.Context, category Category, message string, data any) {
	runID := RunIDFrom(ctx)
	category = ParseCategory(string(category))

	s.mu.Lock()
	ts := s.now()
	entry := Entry{
		ID:        ulid.MustNew(ulid.Timestamp(ts), s.entropy).String(),
		Timestamp: ts,
		Category:  category,
		Message:   message,
		Data:      data,
		RunID:     runID,
	}
	s.buf[s.next] = entry
	s.next = (s.next + 1) % len(s.buf)
	if s.size < len(s.buf) {
		s.size++
	}
	s.mu.Unlock()

	level := slog.LevelInfo
	if category == CategoryError {
		level = slog.LevelError
	}
	attrs := []any{"category", string(category)}
	if runID != "" {
		attrs = append(attrs, "run_id", runID)
	}
	s.logger.Log(ctx, level, fmt.Sprintf("[%s] %s", category, message), attrs...)
}

// Increment adds delta to a counter.
func (s *Store) Increment(ctx context.Context, counter Counter, delta int) {
	if delta <= 0 {
		return
	}
	s.mu.Lock()
	switch counter {
	case LeadsAnalyzed:
		s.metrics.LeadsAnalyzed += int64(delta)
	case DealsMonitored:
		s.metrics.DealsMonitored += int64(delta)
	case InterventionsMade:
		s.metrics.InterventionsMade += int64(delta)
	case AlertsSent:
		s.metrics.AlertsSent += int64(delta)
	default:
		s.mu.Unlock()
		s.logger.Warn("unknown activity counter", "counter", string(counter))
		return
	}
	s.mu.Unlock()

	observability.RecordCounter(ctx, string(counter), int64(delta))
}

// MarkRun records when a job last started.
func (s *Store) MarkRun(job string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.LastRun[job] = at
}

// Snapshot copies the counters and the newest limit entries.
// A non-positive limit returns every retained entry.
func (s *Store) Snapshot(limit int) (Metrics, []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.metrics
	m.LastRun = make(map[string]time.Time, len(s.metrics.LastRun))
	for k, v := range s.metrics.LastRun {
		m.LastRun[k] = v
	}

	n := s.size
	if limit > 0 && limit < n {
		n = limit
	}
	entries := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.buf)) % len(s.buf)
		entries = append(entries, s.buf[idx])
	}
	return m, entries
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}
