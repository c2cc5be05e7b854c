package jobs

import "context"

// Trigger says how a run was started.
type Trigger string

// Trigger values.
const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

type triggerKey struct{}

// WithTrigger marks ctx with how the run was started.
func WithTrigger(ctx context.Context, t Trigger) context.Context {
	return context.WithValue(ctx, triggerKey{}, t)
}

// TriggerFrom returns the trigger stored in ctx, TriggerScheduled by default.
func TriggerFrom(ctx context.Context) Trigger {
	if t, ok := ctx.Value(triggerKey{}).(Trigger); ok {
		return t
	}
	return TriggerScheduled
}
