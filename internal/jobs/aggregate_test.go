package jobs

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jonathan/gtm-agent/internal/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func ms(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func contact(id string, props crm.Properties) crm.Contact {
	return crm.Contact{ID: id, Properties: props}
}

func deal(id string, props crm.Properties) crm.Deal {
	return crm.Deal{ID: id, Properties: props}
}

func TestRecentContacts_Boundary(t *testing.T) {
	cutoff := testNow.Add(-LeadWindow)
	contacts := []crm.Contact{
		contact("at-cutoff", crm.Properties{"createdate": ms(cutoff)}),
		contact("after-cutoff", crm.Properties{"createdate": ms(cutoff.Add(time.Millisecond))}),
		contact("iso-recent", crm.Properties{"createdate": testNow.Add(-time.Hour).Format(time.RFC3339)}),
		contact("old", crm.Properties{"createdate": ms(testNow.Add(-48 * time.Hour))}),
		contact("unknown", crm.Properties{"createdate": "not a date"}),
		contact("missing", crm.Properties{}),
	}

	recent := RecentContacts(contacts, testNow, LeadWindow)

	ids := make([]string, 0, len(recent))
	for _, c := range recent {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"after-cutoff", "iso-recent"}, ids)
}

func TestOpenDealsAndPipeline(t *testing.T) {
	deals := []crm.Deal{
		deal("1", crm.Properties{"dealstage": "Closed Won", "amount": "1000"}),
		deal("2", crm.Properties{"dealstage": "closedlost", "amount": "50"}),
		deal("3", crm.Properties{"dealstage": "negotiation", "amount": "300"}),
		deal("4", crm.Properties{"dealstage": "appointmentscheduled"}),
	}

	open := OpenDeals(deals)
	require.Len(t, open, 2)
	assert.Equal(t, 300.0, PipelineValue(deals))
}

func TestStalledDeals_Rules(t *testing.T) {
	threshold := testNow.Add(-StalledAfter)
	deals := []crm.Deal{
		deal("closed-won", crm.Properties{"dealstage": "Closed Won", "hs_lastmodifieddate": ms(testNow.Add(-90 * 24 * time.Hour))}),
		deal("just-past", crm.Properties{"dealstage": "Negotiation", "hs_lastmodifieddate": ms(threshold.Add(-time.Second))}),
		deal("boundary", crm.Properties{"dealstage": "Negotiation", "hs_lastmodifieddate": ms(threshold)}),
		deal("fresh", crm.Properties{"dealstage": "Negotiation", "hs_lastmodifieddate": ms(testNow.Add(-time.Hour))}),
		deal("unknown", crm.Properties{"dealstage": "Negotiation", "hs_lastmodifieddate": "garbage"}),
		deal("missing", crm.Properties{"dealstage": "Negotiation"}),
	}

	stalled := StalledDeals(deals, testNow, StalledAfter)
	require.Len(t, stalled, 1)
	assert.Equal(t, "just-past", stalled[0].ID)
	assert.Equal(t, 7, stalled[0].DaysStalled)
	assert.Equal(t, "Unknown", stalled[0].Name)
}

func TestStalledDeals_RankedByAmount(t *testing.T) {
	old := ms(testNow.Add(-30 * 24 * time.Hour))
	amounts := []int{300, 800, 100, 700, 200, 600, 500, 400}
	var deals []crm.Deal
	for i, a := range amounts {
		deals = append(deals, deal(fmt.Sprintf("d%d", i), crm.Properties{
			"dealname":            fmt.Sprintf("Deal %d", a),
			"dealstage":           "qualifiedtobuy",
			"amount":              strconv.Itoa(a),
			"hs_lastmodifieddate": old,
		}))
	}

	stalled := StalledDeals(deals, testNow, StalledAfter)
	require.Len(t, stalled, 8)

	top := firstN(stalled, MaxInterventions)
	got := make([]float64, 0, len(top))
	for _, d := range top {
		got = append(got, d.Amount)
	}
	assert.Equal(t, []float64{800, 700, 600, 500, 400}, got)
}

func TestStalledDeals_StableForEqualAmounts(t *testing.T) {
	old := ms(testNow.Add(-30 * 24 * time.Hour))
	deals := []crm.Deal{
		deal("a", crm.Properties{"amount": "100", "hs_lastmodifieddate": old}),
		deal("b", crm.Properties{"amount": "100", "hs_lastmodifieddate": old}),
		deal("c", crm.Properties{"amount": "100", "hs_lastmodifieddate": old}),
	}

	stalled := StalledDeals(deals, testNow, StalledAfter)
	require.Len(t, stalled, 3)
	assert.Equal(t, "a", stalled[0].ID)
	assert.Equal(t, "b", stalled[1].ID)
	assert.Equal(t, "c", stalled[2].ID)
}

func TestHighScoreContacts(t *testing.T) {
	contacts := []crm.Contact{
		contact("80", crm.Properties{"lead_score_ml": "80"}),
		contact("79", crm.Properties{"lead_score_ml": "79.9"}),
		contact("95", crm.Properties{"lead_score_ml": float64(95)}),
		contact("absent", crm.Properties{}),
		contact("junk", crm.Properties{"lead_score_ml": "high"}),
	}

	high := HighScoreContacts(contacts, HighScoreMinimum)
	require.Len(t, high, 2)
	assert.Equal(t, "80", high[0].ID)
	assert.Equal(t, "95", high[1].ID)
}

func TestStageMatching(t *testing.T) {
	tests := []struct {
		stage     string
		closed    bool
		closedWon bool
		wonStage  bool
	}{
		{"closedwon", true, true, true},
		{"Closed Won", true, true, false},
		{"closedlost", true, false, false},
		{"Won - pending closure", false, false, false},
		{"negotiation", false, false, false},
		{"", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			assert.Equal(t, tt.closed, IsClosed(tt.stage))
			assert.Equal(t, tt.closedWon, IsClosedWon(tt.stage))
			assert.Equal(t, tt.wonStage, IsWonStage(tt.stage))
		})
	}
}

func TestWonDealsWithin(t *testing.T) {
	deals := []crm.Deal{
		deal("recent", crm.Properties{"dealstage": "closedwon", "closedate": testNow.Add(-2 * 24 * time.Hour).Format(time.RFC3339)}),
		deal("fallback", crm.Properties{"dealstage": "Closed Won", "hs_lastmodifieddate": ms(testNow.Add(-time.Hour))}),
		deal("old", crm.Properties{"dealstage": "closedwon", "closedate": ms(testNow.Add(-30 * 24 * time.Hour))}),
		deal("lost", crm.Properties{"dealstage": "closedlost", "closedate": ms(testNow)}),
		deal("undated", crm.Properties{"dealstage": "closedwon"}),
	}

	won := WonDealsWithin(deals, testNow, WeeklyWindow)
	require.Len(t, won, 2)
	assert.Equal(t, "recent", won[0].ID)
	assert.Equal(t, "fallback", won[1].ID)
}

func TestRevenueArithmetic(t *testing.T) {
	won := []crm.Deal{
		deal("1", crm.Properties{"amount": "100"}),
		deal("2", crm.Properties{"amount": "200"}),
	}
	revenue := SumAmounts(won)

	assert.Equal(t, 300.0, revenue)
	assert.Equal(t, 150.0, AverageDealSize(revenue, len(won)))
	assert.Equal(t, 0.0, AverageDealSize(0, 0))
	assert.Equal(t, 0.0, ConversionRate(3, 0))
	assert.Equal(t, 50.0, ConversionRate(2, 4))
}

func TestRanking(t *testing.T) {
	contacts := RankContactsByScore([]crm.Contact{
		contact("low", crm.Properties{"lead_score_ml": "10"}),
		contact("high", crm.Properties{"lead_score_ml": "90"}),
		contact("none", crm.Properties{}),
	})
	assert.Equal(t, "high", contacts[0].ID)
	assert.Equal(t, "none", contacts[2].ID)

	deals := RankDealsByAmount([]crm.Deal{
		deal("small", crm.Properties{"amount": "5"}),
		deal("big", crm.Properties{"amount": "5000"}),
	})
	assert.Equal(t, "big", deals[0].ID)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0", formatCurrency(0))
	assert.Equal(t, "$999", formatCurrency(999))
	assert.Equal(t, "$1,000", formatCurrency(1000))
	assert.Equal(t, "$1,234,568", formatCurrency(1234567.6))
	assert.Equal(t, "-$50", formatCurrency(-50))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "abc...", truncateText("abcdef", 3))
}
