// Package format renders report numbers for display. Rounding goes through
// decimal so that half-way values round the same way on every platform.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Arrow joins an initial and a current value.
const Arrow = " → "

// Fixed rounds v to places and adds thousands separators: 1234.5 → "1,234.50".
func Fixed(v float64, places int32) string {
	s := decimal.NewFromFloat(v).Round(places).StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	out := groupThousands(intPart) + frac
	if neg && strings.Trim(out, "0.,") != "" {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Currency renders a dollar amount: -12.5 → "-$12.50".
func Currency(v float64) string {
	s := Fixed(v, 2)
	if strings.HasPrefix(s, "-") {
		return "-$" + s[1:]
	}
	return "$" + s
}

// Percent renders v as a percentage with the given precision: "120.5%".
func Percent(v float64, places int32) string {
	return Fixed(v, places) + "%"
}

// Change renders a signed percent change: "+12.5%", "-3.0%", "0.0%".
func Change(v float64) string {
	s := Percent(v, 1)
	if s != "0.0%" && !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

// Series joins values rendered with places decimals: "5.0→12.0→20.0".
func Series(places int32, values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = Fixed(v, places)
	}
	return strings.Join(parts, "→")
}
