package domain

import "math"

// RoundCents rounds an amount to two decimal places.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
