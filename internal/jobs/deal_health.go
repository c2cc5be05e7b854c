package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/crm"
)

const (
	healthDealLimit = 100
	taskDueIn       = 4 * time.Hour
)

// DealHealth flags open deals with no activity for a week, opens follow-up tasks on
// the five largest and sends one consolidated alert.
func (r *Runner) DealHealth(ctx context.Context) error {
	return r.run(ctx, NameDealHealth, "Deal Health Check", r.dealHealth)
}

func (r *Runner) dealHealth(ctx context.Context) error {
	now := r.now()
	deals := r.crm.ListDeals(ctx, healthDealLimit)
	r.rec.Increment(ctx, activity.DealsMonitored, len(deals))

	stalled := StalledDeals(deals, now, StalledAfter)
	if len(stalled) == 0 {
		r.rec.Log(ctx, activity.CategoryHealthCheck, "All deals healthy - no interventions needed",
			map[string]any{"deals_checked": len(deals)})
		return nil
	}

	top := firstN(stalled, MaxInterventions)
	due := now.Add(taskDueIn)
	created := 0
	for _, d := range top {
		title := fmt.Sprintf("⚠️ Re-engage Stalled Deal: %s", d.Name)
		task := r.crm.CreateTask(ctx, crm.TaskInput{
			Title:  title,
			Body:   interventionBody(d),
			Due:    &due,
			DealID: d.ID,
		})
		if task == nil {
			continue
		}
		created++
		r.rec.Increment(ctx, activity.InterventionsMade, 1)
		r.rec.Log(ctx, activity.CategoryTask, fmt.Sprintf("Created task for deal %s", d.ID),
			map[string]any{"title": title, "task_id": task.ID, "amount": d.Amount})
	}

	r.notifier.Notify(ctx, stalledAlert(stalled, created), nil)
	r.rec.Log(ctx, activity.CategoryAlert,
		fmt.Sprintf("Found %d stalled deals, created %d intervention tasks", len(stalled), created), top)
	return nil
}

func interventionBody(d StalledDeal) string {
	return fmt.Sprintf("This deal has been inactive for %d days. Current stage: %s. Suggested actions:\n"+
		"1. Schedule check-in call\n"+
		"2. Send value reinforcement email\n"+
		"3. Offer ROI analysis", d.DaysStalled, d.Stage)
}

func stalledAlert(stalled []StalledDeal, created int) string {
	var sb strings.Builder
	sb.WriteString("🚨 *Deal Health Alert*\n\n")
	sb.WriteString(fmt.Sprintf("%d deals have stalled (no activity in 7+ days)\n\n", len(stalled)))
	for _, d := range stalled {
		sb.WriteString(fmt.Sprintf("• %s (%s) %s, %d days idle\n", d.Name, d.Stage, formatCurrency(d.Amount), d.DaysStalled))
	}
	if created == 0 {
		sb.WriteString("\nTask creation failed; see the activity log.")
	} else {
		sb.WriteString(fmt.Sprintf("\nTasks created for top %d deals requiring attention.", created))
	}
	return sb.String()
}
