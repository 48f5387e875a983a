package common

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatAmount renders a price with no decimals and thousands separators.
// Halves round to even. A missing amount renders as an empty string.
func FormatAmount(v float64, ok bool) string {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	r := math.RoundToEven(v)
	if r == 0 {
		// drop the sign of -0
		r = 0
	}
	return humanize.Commaf(r)
}
