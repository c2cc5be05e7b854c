package jobs

import (
	"context"
)

// Job names.
const (
	NameMorningBrief = "morning_brief"
	NameDealHealth   = "deal_health"
	NameLeadScore    = "lead_score"
	NameWeeklyReport = "weekly_report"
)

// Definition describes a registered job and its fixed schedule.
type Definition struct {
	Name        string
	Schedule    string
	Description string
	Run         func(ctx context.Context) error
}

// schedules maps job names to cron specs.
var schedules = map[string]struct {
	spec        string
	description string
}{
	NameMorningBrief: {"0 8 * * *", "Daily at 8:00 AM"},
	NameDealHealth:   {"@every 4h", "Every 4 hours"},
	NameLeadScore:    {"0 23 * * *", "Daily at 11:00 PM"},
	NameWeeklyReport: {"0 9 * * 1", "Mondays at 9:00 AM"},
}

// Names lists the jobs in registration order.
func Names() []string {
	return []string{NameMorningBrief, NameDealHealth, NameLeadScore, NameWeeklyReport}
}

// Definitions binds every job to this runner.
func (r *Runner) Definitions() []Definition {
	runs := map[string]func(context.Context) error{
		NameMorningBrief: r.MorningBrief,
		NameDealHealth:   r.DealHealth,
		NameLeadScore:    r.LeadScore,
		NameWeeklyReport: r.WeeklyReport,
	}

	defs := make([]Definition, 0, len(runs))
	for _, name := range Names() {
		s := schedules[name]
		defs = append(defs, Definition{
			Name:        name,
			Schedule:    s.spec,
			Description: s.description,
			Run:         runs[name],
		})
	}
	return defs
}
