// Package jobs implements the four scheduled GTM aggregation jobs and the ad hoc
// pipeline question. Every job takes a fresh CRM snapshot, aggregates it, asks the
// summarizer for commentary and posts the result.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/crm"
	"github.com/jonathan/gtm-agent/internal/insights"
	"github.com/jonathan/gtm-agent/internal/notify"
	"github.com/jonathan/gtm-agent/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators a Runner needs.
type Deps struct {
	CRM        crm.API
	Summarizer insights.Summarizer
	Notifier   notify.Notifier
	Recorder   activity.Recorder
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Runner executes jobs against its dependencies. It holds no per-run state and is
// safe to use from several goroutines.
type Runner struct {
	crm        crm.API
	summarizer insights.Summarizer
	notifier   notify.Notifier
	rec        activity.Recorder
	now        func() time.Time
	logger     *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(d Deps) *Runner {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		crm:        d.CRM,
		summarizer: d.Summarizer,
		notifier:   d.Notifier,
		rec:        d.Recorder,
		now:        now,
		logger:     logger,
	}
}

// PanicError wraps a panic recovered inside a job body.
type PanicError struct {
	Job   string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job %s panicked: %v", e.Job, e.Value)
}

// run is the failure boundary shared by every job. It tags the context with a
// run ID, records the start, and converts panics into errors. Failures are
// logged and returned; callers decide whether to surface them.
func (r *Runner) run(ctx context.Context, name, label string, body func(ctx context.Context) error) (err error) {
	runID := uuid.NewString()
	ctx = activity.WithRunID(ctx, runID)
	trigger := TriggerFrom(ctx)
	started := time.Now()

	r.rec.Log(ctx, activity.CategoryJobStart, label+" starting...", map[string]any{"trigger": string(trigger)})
	r.rec.MarkRun(name, r.now())

	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Job: name, Value: p, Stack: debug.Stack()}
			r.logger.Error("job panicked", "job", name, "run_id", runID, "panic", p, "stack", string(debug.Stack()))
		}

		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeFailure
			r.rec.Log(ctx, activity.CategoryError, fmt.Sprintf("%s failed: %v", label, err), nil)
		}
		observability.RecordJobRun(ctx, name, string(trigger), outcome, time.Since(started))
	}()

	return body(ctx)
}

// snapshot fetches contacts and deals concurrently.
func (r *Runner) snapshot(ctx context.Context, contactLimit int, properties []string, dealLimit int) ([]crm.Contact, []crm.Deal, error) {
	var (
		contacts []crm.Contact
		deals    []crm.Deal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err)
		contacts = r.crm.ListContacts(gctx, contactLimit, properties)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(&err)
		deals = r.crm.ListDeals(gctx, dealLimit)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return contacts, deals, nil
}

// recoverInto turns a panic in a fetch goroutine into an error so it reaches the
// job boundary instead of crashing the process.
func recoverInto(err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("panic: %v", p)
	}
}
