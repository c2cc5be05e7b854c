package jobs

import (
	"context"
	"fmt"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/prompts"
)

const (
	scoreContactLimit = 200
	scoreDealLimit    = 100
	scoreSampleSize   = 20
	scoreAnalysisLen  = 400
)

var scoreProperties = []string{"firstname", "lastname", "email", "company", "lead_score_ml", "hs_lead_status", "createdate"}

// LeadScore reviews how many leads the model scores highly against closed-won deals.
// Scores are read only; nothing is written back.
func (r *Runner) LeadScore(ctx context.Context) error {
	return r.run(ctx, NameLeadScore, "Lead Score Analysis", r.leadScore)
}

func (r *Runner) leadScore(ctx context.Context) error {
	contacts, deals, err := r.snapshot(ctx, scoreContactLimit, scoreProperties, scoreDealLimit)
	if err != nil {
		return err
	}

	high := HighScoreContacts(contacts, HighScoreMinimum)
	won := CountWonStage(deals)
	r.rec.Increment(ctx, activity.LeadsAnalyzed, len(high))

	analysis := r.summarizer.Summarize(ctx, prompts.MustGet(prompts.LeadScore), map[string]any{
		"high_score_leads": firstN(RankContactsByScore(high), scoreSampleSize),
		"high_score_count": len(high),
		"total_analyzed":   len(contacts),
		"won_deals":        won,
		"total_deals":      len(deals),
	})

	report := fmt.Sprintf("📊 *Lead Score Analysis*\n\n%d high-quality leads (score %d+) out of %d total\n%d closed-won deals out of %d\n\n%s",
		len(high), HighScoreMinimum, len(contacts), won, len(deals), truncateText(analysis, scoreAnalysisLen))
	r.notifier.Notify(ctx, report, nil)

	r.rec.Log(ctx, activity.CategoryAnalysis, fmt.Sprintf("Lead score analysis complete: %d high-quality leads", len(high)), map[string]any{
		"high_score_leads": len(high),
		"total_contacts":   len(contacts),
		"won_deals":        won,
	})
	return nil
}
