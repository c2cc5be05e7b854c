// Package activity holds the agent's in-memory activity log and running counters.
// Both live behind a single mutex-guarded Store; nothing here is persisted.
package activity

import (
	"strings"
	"time"
)

// Category tags a log entry. The set is closed; unknown tags map to CategoryOther.
type Category string

// Known categories.
const (
	CategoryStartup     Category = "STARTUP"
	CategoryJobStart    Category = "JOB_START"
	CategoryError       Category = "ERROR"
	CategoryAlert       Category = "ALERT"
	CategoryBrief       Category = "BRIEF"
	CategoryTask        Category = "TASK"
	CategoryAnalysis    Category = "ANALYSIS"
	CategoryReport      Category = "REPORT"
	CategoryQuery       Category = "QUERY"
	CategorySlack       Category = "SLACK"
	CategoryHealthCheck Category = "HEALTH_CHECK"
	CategoryUpdate      Category = "UPDATE"
	CategoryOther       Category = "OTHER"
)

var knownCategories = map[Category]bool{
	CategoryStartup:     true,
	CategoryJobStart:    true,
	CategoryError:       true,
	CategoryAlert:       true,
	CategoryBrief:       true,
	CategoryTask:        true,
	CategoryAnalysis:    true,
	CategoryReport:      true,
	CategoryQuery:       true,
	CategorySlack:       true,
	CategoryHealthCheck: true,
	CategoryUpdate:      true,
	CategoryOther:       true,
}

// ParseCategory maps a free-form tag onto the closed category set.
func ParseCategory(s string) Category {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if knownCategories[c] {
		return c
	}
	return CategoryOther
}

// Counter names a running metric.
type Counter string

// Counters tracked by the agent.
const (
	LeadsAnalyzed     Counter = "leads_analyzed"
	DealsMonitored    Counter = "deals_monitored"
	InterventionsMade Counter = "interventions_made"
	AlertsSent        Counter = "alerts_sent"
)

// Entry is one activity log record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
}

// Metrics is a point-in-time copy of the running counters.
type Metrics struct {
	LeadsAnalyzed     int64                `json:"leads_analyzed"`
	DealsMonitored    int64                `json:"deals_monitored"`
	InterventionsMade int64                `json:"interventions_made"`
	AlertsSent        int64                `json:"alerts_sent"`
	LastRun           map[string]time.Time `json:"last_run"`
	StartedAt         time.Time            `json:"started_at"`
}
