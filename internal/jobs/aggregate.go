package jobs

import (
	"sort"
	"strings"
	"time"

	"github.com/jonathan/gtm-agent/internal/crm"
	"github.com/jonathan/gtm-agent/internal/dates"
)

// Aggregation windows and thresholds.
const (
	LeadWindow       = 24 * time.Hour
	WeeklyWindow     = 7 * 24 * time.Hour
	StalledAfter     = 7 * 24 * time.Hour
	HighScoreMinimum = 80
	MaxInterventions = 5
)

// IsClosed reports whether a stage is closed (won or lost).
func IsClosed(stage string) bool {
	return strings.Contains(strings.ToLower(stage), "closed")
}

// IsClosedWon reports whether a stage contains both "closed" and "won".
func IsClosedWon(stage string) bool {
	s := strings.ToLower(stage)
	return strings.Contains(s, "closed") && strings.Contains(s, "won")
}

// IsWonStage matches the CRM's internal "closedwon" stage id.
func IsWonStage(stage string) bool {
	return strings.Contains(strings.ToLower(stage), "closedwon")
}

// RecentContacts keeps contacts created strictly after now-window.
// Contacts with an unknown createdate are dropped.
func RecentContacts(contacts []crm.Contact, now time.Time, window time.Duration) []crm.Contact {
	cutoff := now.Add(-window)
	var out []crm.Contact
	for _, c := range contacts {
		ms, known := c.Properties.Date("createdate")
		if dates.Within(ms, known, cutoff) {
			out = append(out, c)
		}
	}
	return out
}

// OpenDeals drops deals whose stage is closed.
func OpenDeals(deals []crm.Deal) []crm.Deal {
	var out []crm.Deal
	for _, d := range deals {
		if !IsClosed(d.Stage()) {
			out = append(out, d)
		}
	}
	return out
}

// SumAmounts adds up deal amounts. Missing amounts count as 0.
func SumAmounts(deals []crm.Deal) float64 {
	var total float64
	for _, d := range deals {
		total += d.Amount()
	}
	return total
}

// PipelineValue is the total amount of the open deals in a snapshot.
func PipelineValue(deals []crm.Deal) float64 {
	return SumAmounts(OpenDeals(deals))
}

// StalledDeal is an open deal with no recent modification.
type StalledDeal struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Stage       string  `json:"stage"`
	Amount      float64 `json:"amount"`
	DaysStalled int     `json:"days_stalled"`
}

// StalledDeals returns open deals last modified strictly before now-threshold,
// highest amount first. Deals with an unknown modification date are never stalled.
func StalledDeals(deals []crm.Deal, now time.Time, threshold time.Duration) []StalledDeal {
	cutoff := now.Add(-threshold)
	var out []StalledDeal
	for _, d := range deals {
		if IsClosed(d.Stage()) {
			continue
		}
		ms, known := d.Properties.Date("hs_lastmodifieddate")
		if !dates.OlderThan(ms, known, cutoff) {
			continue
		}
		out = append(out, StalledDeal{
			ID:          d.ID,
			Name:        d.Properties.StringOr("dealname", "Unknown"),
			Stage:       d.Stage(),
			Amount:      d.Amount(),
			DaysStalled: int(now.Sub(dates.ToTime(ms)) / (24 * time.Hour)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}

// HighScoreContacts keeps contacts whose lead_score_ml is at least minimum.
func HighScoreContacts(contacts []crm.Contact, minimum float64) []crm.Contact {
	var out []crm.Contact
	for _, c := range contacts {
		if c.Properties.Number("lead_score_ml") >= minimum {
			out = append(out, c)
		}
	}
	return out
}

// CountWonStage counts deals in the "closedwon" stage.
func CountWonStage(deals []crm.Deal) int {
	n := 0
	for _, d := range deals {
		if IsWonStage(d.Stage()) {
			n++
		}
	}
	return n
}

// WonDealsWithin returns closed-won deals whose closedate (or, when unknown,
// hs_lastmodifieddate) falls strictly after now-window.
func WonDealsWithin(deals []crm.Deal, now time.Time, window time.Duration) []crm.Deal {
	cutoff := now.Add(-window)
	var out []crm.Deal
	for _, d := range deals {
		if !IsClosedWon(d.Stage()) {
			continue
		}
		ms, known := d.Properties.Date("closedate")
		if !known {
			ms, known = d.Properties.Date("hs_lastmodifieddate")
		}
		if dates.Within(ms, known, cutoff) {
			out = append(out, d)
		}
	}
	return out
}

// ConversionRate is won/leads as a percentage, 0 when there are no leads.
func ConversionRate(won, leads int) float64 {
	if leads == 0 {
		return 0
	}
	return float64(won) / float64(leads) * 100
}

// AverageDealSize is revenue/won, 0 when nothing was won.
func AverageDealSize(revenue float64, won int) float64 {
	if won == 0 {
		return 0
	}
	return revenue / float64(won)
}

// RankContactsByScore sorts a copy of contacts by lead_score_ml, highest first.
func RankContactsByScore(contacts []crm.Contact) []crm.Contact {
	out := append([]crm.Contact(nil), contacts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Properties.Number("lead_score_ml") > out[j].Properties.Number("lead_score_ml")
	})
	return out
}

// RankDealsByAmount sorts a copy of deals by amount, highest first.
func RankDealsByAmount(deals []crm.Deal) []crm.Deal {
	out := append([]crm.Deal(nil), deals...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount() > out[j].Amount() })
	return out
}

func firstN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// truncateText cuts s to n runes, appending "..." when it was cut.
func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
