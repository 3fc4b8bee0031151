// ABOUTME: Money helpers shared by the compiler and checkout
// ABOUTME: Round half away from zero to 2 decimals; never truncation

package compile

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Round2 rounds to 2 decimals, half away from zero. Every accumulation step
// in pricing applies this so repeated additions cannot drift.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MinorUnits converts a decimal amount to integer minor units (cents),
// rounding half away from zero.
func MinorUnits(v float64) int64 {
	return int64(math.Round(v * 100))
}

var priceDigits = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParsePrice extracts a decimal price from ingested catalog text such as
// "$12.50" or "12.50 USD". A missing or unparseable price is zero, never an
// error: the catalog is scraped data and pricing must not abort a compile.
func ParsePrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	m := priceDigits.FindString(raw)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}
