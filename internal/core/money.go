package core

import "math"

// RoundCents rounds an aggregate amount to two decimals for display.
// Sums are kept unrounded internally.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
