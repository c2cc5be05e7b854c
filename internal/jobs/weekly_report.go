package jobs

import (
	"context"
	"fmt"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/notify"
)

const weeklyCommentaryLen = 500

// WeeklyReport computes the seven-day aggregate and posts a chat summary.
func (r *Runner) WeeklyReport(ctx context.Context) error {
	return r.run(ctx, NameWeeklyReport, "Weekly Report", r.weeklyReport)
}

func (r *Runner) weeklyReport(ctx context.Context) error {
	report, err := r.BuildWeeklyReport(ctx)
	if err != nil {
		return err
	}
	r.rec.Increment(ctx, activity.LeadsAnalyzed, report.NewLeads)

	blocks := []notify.Block{
		notify.Header(fmt.Sprintf("📈 Weekly GTM Report - %s", report.GeneratedAt.Format("January 02, 2006"))),
		notify.Section(report.ChatSummary() + "\n\n" + truncateText(report.Commentary, weeklyCommentaryLen)),
	}
	r.notifier.Notify(ctx, fmt.Sprintf("Weekly Report: %d leads, %d deals won, %s revenue",
		report.NewLeads, report.WonDeals, formatCurrency(report.Revenue)), blocks)

	r.rec.Log(ctx, activity.CategoryReport, fmt.Sprintf("Weekly report sent: %d leads, %d deals won", report.NewLeads, report.WonDeals), map[string]any{
		"new_leads":         report.NewLeads,
		"won_deals":         report.WonDeals,
		"revenue":           report.Revenue,
		"conversion_rate":   report.ConversionRate,
		"average_deal_size": report.AverageDealSize,
		"pipeline_value":    report.PipelineValue,
	})
	return nil
}
