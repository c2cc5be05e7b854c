package jobs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/gtm-agent/internal/crm"
	"github.com/jonathan/gtm-agent/internal/prompts"
)

const (
	reportContactLimit = 200
	reportDealLimit    = 100
	reportListSize     = 10
	// boxWidth is the width of the rendered report sections
	boxWidth = 72
)

// LeadLine is one row of the ranked lead list.
type LeadLine struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Company string  `json:"company,omitempty"`
	Score   float64 `json:"score"`
}

// DealLine is one row of a ranked deal list.
type DealLine struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Stage  string  `json:"stage"`
	Amount float64 `json:"amount"`
}

// WeeklyReport is the seven-day GTM aggregate.
type WeeklyReport struct {
	GeneratedAt     time.Time  `json:"generated_at"`
	PeriodStart     time.Time  `json:"period_start"`
	NewLeads        int        `json:"new_leads"`
	WonDeals        int        `json:"won_deals"`
	Revenue         float64    `json:"revenue"`
	ConversionRate  float64    `json:"conversion_rate"`
	AverageDealSize float64    `json:"average_deal_size"`
	OpenDeals       int        `json:"open_deals"`
	PipelineValue   float64    `json:"pipeline_value"`
	TopLeads        []LeadLine `json:"top_leads"`
	WonThisWeek     []DealLine `json:"won_this_week"`
	TopOpenDeals    []DealLine `json:"top_open_deals"`
	Commentary      string     `json:"commentary"`
}

// BuildWeeklyReport computes the weekly aggregate and commentary without posting
// anything or touching counters.
func (r *Runner) BuildWeeklyReport(ctx context.Context) (*WeeklyReport, error) {
	now := r.now()
	contacts, deals, err := r.snapshot(ctx, reportContactLimit, crm.ContactProperties, reportDealLimit)
	if err != nil {
		return nil, err
	}

	leads := RecentContacts(contacts, now, WeeklyWindow)
	won := WonDealsWithin(deals, now, WeeklyWindow)
	open := OpenDeals(deals)
	revenue := SumAmounts(won)

	report := &WeeklyReport{
		GeneratedAt:     now,
		PeriodStart:     now.Add(-WeeklyWindow),
		NewLeads:        len(leads),
		WonDeals:        len(won),
		Revenue:         revenue,
		ConversionRate:  ConversionRate(len(won), len(leads)),
		AverageDealSize: AverageDealSize(revenue, len(won)),
		OpenDeals:       len(open),
		PipelineValue:   SumAmounts(open),
		TopLeads:        leadLines(firstN(RankContactsByScore(leads), reportListSize)),
		WonThisWeek:     dealLines(firstN(RankDealsByAmount(won), reportListSize)),
		TopOpenDeals:    dealLines(firstN(RankDealsByAmount(open), reportListSize)),
	}

	report.Commentary = r.summarizer.Summarize(ctx, prompts.MustGet(prompts.WeeklyReport), report)
	return report, nil
}

func leadLines(contacts []crm.Contact) []LeadLine {
	out := make([]LeadLine, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, LeadLine{
			ID:      c.ID,
			Name:    c.Name(),
			Company: c.Properties.String("company"),
			Score:   c.Properties.Number("lead_score_ml"),
		})
	}
	return out
}

func dealLines(deals []crm.Deal) []DealLine {
	out := make([]DealLine, 0, len(deals))
	for _, d := range deals {
		out = append(out, DealLine{ID: d.ID, Name: d.Name(), Stage: d.Stage(), Amount: d.Amount()})
	}
	return out
}

// Filename is the download name of the rendered report.
func (w *WeeklyReport) Filename() string {
	return fmt.Sprintf("weekly-gtm-report-%s.txt", w.GeneratedAt.Format("2006-01-02"))
}

// Render writes the report as a plain-text document.
func (w *WeeklyReport) Render(out io.Writer) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("WEEKLY GTM REPORT\n%s to %s\n\n",
		w.PeriodStart.Format("Jan 02, 2006"), w.GeneratedAt.Format("Jan 02, 2006")))

	writeBox(&sb, "EXECUTIVE SUMMARY", strings.Join([]string{
		fmt.Sprintf("New leads:          %d", w.NewLeads),
		fmt.Sprintf("Deals won:          %d", w.WonDeals),
		fmt.Sprintf("Revenue closed:     %s", formatCurrency(w.Revenue)),
		fmt.Sprintf("Conversion rate:    %.1f%%", w.ConversionRate),
		fmt.Sprintf("Average deal size:  %s", formatCurrency(w.AverageDealSize)),
		fmt.Sprintf("Open pipeline:      %s across %d deals", formatCurrency(w.PipelineValue), w.OpenDeals),
	}, "\n"))

	var leads strings.Builder
	if len(w.TopLeads) == 0 {
		leads.WriteString("No new leads this week.")
	}
	for i, l := range w.TopLeads {
		if i > 0 {
			leads.WriteString("\n")
		}
		leads.WriteString(fmt.Sprintf("#%d  %s", i+1, l.Name))
		if l.Company != "" {
			leads.WriteString(fmt.Sprintf(" (%s)", l.Company))
		}
		leads.WriteString(fmt.Sprintf("  score %.0f", l.Score))
	}
	writeBox(&sb, "TOP LEADS BY SCORE", leads.String())

	writeBox(&sb, "CLOSED WON THIS WEEK", dealList(w.WonThisWeek, "No deals closed this week."))
	writeBox(&sb, "TOP OPEN DEALS BY AMOUNT", dealList(w.TopOpenDeals, "No open deals."))
	writeBox(&sb, "ANALYST COMMENTARY", w.Commentary)

	_, err := io.WriteString(out, sb.String())
	return err
}

// ChatSummary is the short form posted to chat.
func (w *WeeklyReport) ChatSummary() string {
	return fmt.Sprintf("*New Leads:* %d\n*Deals Won:* %d (%s)\n*Conversion:* %.1f%%\n*Avg Deal Size:* %s\n*Open Pipeline:* %s across %d deals",
		w.NewLeads, w.WonDeals, formatCurrency(w.Revenue), w.ConversionRate,
		formatCurrency(w.AverageDealSize), formatCurrency(w.PipelineValue), w.OpenDeals)
}

func dealList(deals []DealLine, empty string) string {
	if len(deals) == 0 {
		return empty
	}
	lines := make([]string, 0, len(deals))
	for i, d := range deals {
		lines = append(lines, fmt.Sprintf("#%d  %s  %s  [%s]", i+1, d.Name, formatCurrency(d.Amount), d.Stage))
	}
	return strings.Join(lines, "\n")
}

// writeBox writes a titled box, wrapping long lines at word boundaries.
func writeBox(sb *strings.Builder, title, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	sb.WriteString(fmt.Sprintf("┌%s┐\n", border))
	sb.WriteString(fmt.Sprintf("│ %-*s │\n", inner, title))
	sb.WriteString(fmt.Sprintf("├%s┤\n", border))
	for _, line := range strings.Split(content, "\n") {
		for _, wrapped := range wrap(line, inner) {
			pad := inner - len([]rune(wrapped))
			sb.WriteString("│ " + wrapped + strings.Repeat(" ", pad) + " │\n")
		}
	}
	sb.WriteString(fmt.Sprintf("└%s┘\n\n", border))
}

func wrap(line string, width int) []string {
	if len([]rune(line)) <= width {
		return []string{line}
	}
	var out []string
	var cur []rune
	for _, word := range strings.Fields(line) {
		w := []rune(word)
		for len(w) > width {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = w
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
		default:
			out = append(out, string(cur))
			cur = w
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
