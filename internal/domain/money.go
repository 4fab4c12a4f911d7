package domain

import (
	"math"
	"strconv"
	"strings"
)

// FormatMoney renders a dollar amount with thousands separators.
func FormatMoney(amount float64) string {
	neg := amount < 0
	n := int64(math.Round(math.Abs(amount)))
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
