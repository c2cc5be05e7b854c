package jobs

import (
	"math"
	"strconv"
	"strings"
)

// formatCurrency renders a dollar amount with thousands separators and no cents.
func formatCurrency(v float64) string {
	neg := v < 0
	digits := strconv.FormatInt(int64(math.Round(math.Abs(v))), 10)

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteByte('$')
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
