package utils

import (
	"math"
	"strings"
	"unicode"
)

// Slugify lowercases s and joins alphanumeric runs with single dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case r == '+' || r == '#':
			// keep c++ / c# distinct from c
			if r == '+' {
				b.WriteString("plus")
			} else {
				b.WriteString("sharp")
			}
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// RoundMoney rounds an amount in major units to 2 decimals.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToMinorUnits converts a major-unit amount to integer minor units.
func ToMinorUnits(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FromMinorUnits converts integer minor units back to a major-unit amount.
func FromMinorUnits(v int64) float64 {
	return float64(v) / 100
}
