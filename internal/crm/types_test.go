package crm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProperties_Defaults(t *testing.T) {
	p := Properties{
		"dealname":   "Acme",
		"amount":     "250.5",
		"count":      json.Number("12"),
		"score":      float64(80),
		"empty":      nil,
		"garbage":    "n/a",
		"flag":       true,
		"createdate": "2024-01-02T03:04:05Z",
	}

	assert.Equal(t, "Acme", p.String("dealname"))
	assert.Equal(t, "", p.String("missing"))
	assert.Equal(t, "fallback", p.StringOr("empty", "fallback"))
	assert.Equal(t, "12", p.String("count"))
	assert.Equal(t, "true", p.String("flag"))

	assert.Equal(t, 250.5, p.Number("amount"))
	assert.Equal(t, 12.0, p.Number("count"))
	assert.Equal(t, 80.0, p.Number("score"))
	assert.Equal(t, 0.0, p.Number("missing"))
	assert.Equal(t, 0.0, p.Number("garbage"))

	_, known := p.Date("createdate")
	assert.True(t, known)
	_, known = p.Date("garbage")
	assert.False(t, known)
	_, known = p.Date("missing")
	assert.False(t, known)
}

func TestNilProperties(t *testing.T) {
	var d Deal
	assert.Equal(t, "Unnamed deal", d.Name())
	assert.Equal(t, "", d.Stage())
	assert.Equal(t, 0.0, d.Amount())

	c := Contact{Properties: Properties{"email": "a@b.co"}}
	assert.Equal(t, "a@b.co", c.Name())
}
