package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Job run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	initMetricsOnce sync.Once
	activityCounter metric.Int64Counter
	jobRunsCounter  metric.Int64Counter
	jobRunDuration  metric.Float64Histogram
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only runs once.
// Call after InitMeterProvider.
func InitMetrics(_ context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		activityCounter, err = m.Int64Counter("gtm_agent_activity_total", metric.WithDescription("Agent activity counters (leads analyzed, deals monitored, interventions, alerts)"))
		if err != nil {
			return
		}
		jobRunsCounter, err = m.Int64Counter("gtm_agent_job_runs_total", metric.WithDescription("Aggregation job runs by outcome"))
		if err != nil {
			return
		}
		jobRunDuration, err = m.Float64Histogram("gtm_agent_job_run_duration_seconds", metric.WithDescription("Aggregation job run duration in seconds"))
	})
	return err
}

// RecordCounter mirrors an activity counter increment.
func RecordCounter(ctx context.Context, counter string, delta int64) {
	if activityCounter == nil || delta <= 0 {
		return
	}
	activityCounter.Add(ctx, delta, metric.WithAttributes(AttrCounter.String(counter)))
}

// RecordJobRun records one job run and its duration.
func RecordJobRun(ctx context.Context, job, trigger, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(AttrJob.String(job), AttrTrigger.String(trigger), AttrOutcome.String(outcome))
	if jobRunsCounter != nil {
		jobRunsCounter.Add(ctx, 1, attrs)
	}
	if jobRunDuration != nil {
		jobRunDuration.Record(ctx, duration.Seconds(), attrs)
	}
}
