// Package dates normalizes CRM timestamp fields into epoch milliseconds.
// CRM properties arrive either as epoch-millisecond strings or as ISO-8601 strings;
// anything that cannot be parsed is reported as unknown rather than as an error.
package dates

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// isoLayouts are tried in order for strings that carry an ISO-8601 marker.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Normalize converts a raw property value into epoch milliseconds.
// The second return value is false when the value is absent or unparsable.
func Normalize(raw any) (int64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case string:
		return parseString(v)
	case json.Number:
		return parseString(v.String())
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case time.Time:
		if v.IsZero() {
			return 0, false
		}
		return FromTime(v), true
	default:
		return 0, false
	}
}

// FromTime returns t as epoch milliseconds.
func FromTime(t time.Time) int64 {
	return t.UnixMilli()
}

// ToTime converts epoch milliseconds back to a UTC time.
func ToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Within reports whether a normalized timestamp is strictly after cutoff.
// Unknown timestamps are never within a window.
func Within(ms int64, known bool, cutoff time.Time) bool {
	if !known {
		return false
	}
	return ms > FromTime(cutoff)
}

// OlderThan reports whether a normalized timestamp is strictly before cutoff.
// Unknown timestamps are never older than anything.
func OlderThan(ms int64, known bool, cutoff time.Time) bool {
	if !known {
		return false
	}
	return ms < FromTime(cutoff)
}

func parseString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if looksISO(s) {
		return parseISO(s)
	}
	return parseNumeral(s)
}

// looksISO reports whether s carries a date-time separator, a time colon,
// or a date hyphen after the first character (a leading '-' is a sign).
func looksISO(s string) bool {
	if strings.ContainsAny(s, "T:") {
		return true
	}
	return strings.Contains(s[1:], "-")
}

func parseISO(s string) (int64, bool) {
	for _, layout := range isoLayouts {
		// Layouts without a zone parse as UTC.
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), true
		}
	}
	return 0, false
}

func parseNumeral(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return fromFloat(f)
}

func fromFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
