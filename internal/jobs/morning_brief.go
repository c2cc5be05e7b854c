package jobs

import (
	"context"
	"fmt"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/crm"
	"github.com/jonathan/gtm-agent/internal/notify"
	"github.com/jonathan/gtm-agent/internal/prompts"
)

const (
	briefContactLimit = 100
	briefDealLimit    = 100
	briefSampleSize   = 10
	briefAnalysisLen  = 500
)

// MorningBrief summarises leads created in the last 24 hours and the open pipeline.
func (r *Runner) MorningBrief(ctx context.Context) error {
	return r.run(ctx, NameMorningBrief, "Morning Brief", r.morningBrief)
}

func (r *Runner) morningBrief(ctx context.Context) error {
	now := r.now()
	contacts, deals, err := r.snapshot(ctx, briefContactLimit, crm.ContactProperties, briefDealLimit)
	if err != nil {
		return err
	}

	recent := RecentContacts(contacts, now, LeadWindow)
	open := OpenDeals(deals)
	pipeline := SumAmounts(open)
	r.rec.Increment(ctx, activity.LeadsAnalyzed, len(recent))

	analysis := r.summarizer.Summarize(ctx, prompts.MustGet(prompts.MorningBrief), map[string]any{
		"recent_leads":   firstN(recent, briefSampleSize),
		"total_count":    len(recent),
		"open_deals":     len(open),
		"pipeline_value": pipeline,
	})

	blocks := []notify.Block{
		notify.Header(fmt.Sprintf("🌅 Morning Brief - %s", now.Format("January 02, 2006"))),
		notify.Section(fmt.Sprintf("*New Leads:* %d\n*Open Pipeline:* %s across %d deals\n\n%s",
			len(recent), formatCurrency(pipeline), len(open), truncateText(analysis, briefAnalysisLen))),
	}
	r.notifier.Notify(ctx, fmt.Sprintf("Morning Brief: %d new leads", len(recent)), blocks)

	r.rec.Log(ctx, activity.CategoryBrief, fmt.Sprintf("Morning brief sent: %d leads analyzed", len(recent)), map[string]any{
		"new_leads":      len(recent),
		"open_deals":     len(open),
		"pipeline_value": pipeline,
	})
	return nil
}
