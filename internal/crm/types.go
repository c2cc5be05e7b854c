package crm

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/gtm-agent/internal/dates"
)

// Properties is the raw property map of a CRM object. Values arrive as strings,
// numbers, booleans or null depending on the property type.
type Properties map[string]any

// String returns the property as text, or "" when absent.
func (p Properties) String(key string) string {
	return p.StringOr(key, "")
}

// StringOr returns the property as text, or def when absent or null.
func (p Properties) StringOr(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return def
	}
}

// Number returns the property as a float, or 0 when absent or unparseable.
func (p Properties) Number(key string) float64 {
	switch t := p[key].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Date returns the property as epoch milliseconds. known is false when the
// property is absent or cannot be parsed.
func (p Properties) Date(key string) (ms int64, known bool) {
	return dates.Normalize(p[key])
}

// Contact is a CRM person record.
type Contact struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

// Name joins first and last name, falling back to the email address.
func (c Contact) Name() string {
	name := strings.TrimSpace(c.Properties.String("firstname") + " " + c.Properties.String("lastname"))
	if name == "" {
		return c.Properties.String("email")
	}
	return name
}

// Deal is a CRM sales opportunity.
type Deal struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

// Name returns the deal name or a placeholder.
func (d Deal) Name() string {
	return d.Properties.StringOr("dealname", "Unnamed deal")
}

// Stage returns the free-text pipeline stage.
func (d Deal) Stage() string {
	return d.Properties.String("dealstage")
}

// Amount returns the deal value, 0 when absent.
func (d Deal) Amount() float64 {
	return d.Properties.Number("amount")
}

// Task is a follow-up item created by the agent.
type Task struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

// TaskInput describes a task to create and the deal it belongs to.
type TaskInput struct {
	Title  string
	Body   string
	Due    *time.Time
	DealID string
}

// Property name lists requested from the list endpoints.
var (
	DealProperties    = []string{"dealname", "dealstage", "amount", "closedate", "hs_lastmodifieddate"}
	ContactProperties = []string{"email", "firstname", "lastname", "company", "createdate", "lead_score_ml", "hs_lead_status", "territory_assignment"}
)

// Task property values.
const (
	TaskStatusNotStarted = "NOT_STARTED"
	TaskPriorityHigh     = "HIGH"
)
