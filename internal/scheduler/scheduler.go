// Package scheduler fires named jobs on cron schedules and runs them on demand.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// UnknownJobError is returned when triggering a job that was never registered.
type UnknownJobError struct {
	Name string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("unknown job: %s", e.Name)
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"schedule"`
	Next time.Time `json:"next_run"`
	Prev time.Time `json:"last_fired,omitempty"`
}

type entry struct {
	id   cron.EntryID
	spec string
	fn   JobFunc
}

// Scheduler wraps a cron runner with a name-keyed registry.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]entry
	baseCtx context.Context
	logger  *slog.Logger
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	location *time.Location
	logger   *slog.Logger
}

// WithLocation sets the time zone schedules are evaluated in. Defaults to local time.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithLogger sets the logger used for cron and job output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a stopped scheduler. Scheduled runs receive ctx.
func New(ctx context.Context, opts ...Option) *Scheduler {
	o := options{location: time.Local, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cl := cronLogger{logger: o.logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		jobs:    make(map[string]entry),
		baseCtx: ctx,
		logger:  o.logger,
	}
}

// Register binds name to a schedule. Registering an existing name replaces the
// previous schedule and body.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	// SkipIfStillRunning is per entry: a job never overlaps itself, other jobs are unaffected.
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger})).Then(cron.FuncJob(func() {
		if err := fn(s.baseCtx); err != nil {
			s.logger.Warn("scheduled job failed", "job", name, "error", err)
		}
	}))

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddJob(spec, wrapped)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	if prev, ok := s.jobs[name]; ok {
		s.cron.Remove(prev.id)
	}
	s.jobs[name] = entry{id: id, spec: spec, fn: fn}
	return nil
}

// Trigger runs a registered job synchronously and returns its error. Manual runs
// are independent of the schedule and of any scheduled run in progress.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return &UnknownJobError{Name: name}
	}
	return e.fn(ctx)
}

// Jobs lists registered jobs sorted by name. Next is zero until the scheduler starts.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for name, e := range s.jobs {
		ce := s.cron.Entry(e.id)
		out = append(out, JobInfo{Name: name, Spec: e.spec, Next: ce.Next, Prev: ce.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NextRun returns when spec would next fire after from, for display before Start.
func NextRun(spec string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// Start begins firing scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
