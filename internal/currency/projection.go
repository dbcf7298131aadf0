package currency

import (
	"math"
	"strconv"
)

// Unavailable is rendered wherever a price cannot be projected.
const Unavailable = "N/A"

// Project converts a canonical price into target. The canonical price is
// returned unchanged when target is the canonical currency; otherwise it is
// divided by rate. ok is false when rate is missing, zero or still loading.
func Project(price float64, target, canonical string, rate *float64, loading bool) (float64, bool) {

	if target == "" || target == canonical {
		return price, true
	}

	if loading || rate == nil || *rate == 0 || math.IsNaN(*rate) || math.IsInf(*rate, 0) {
		return 0, false
	}

	return price / *rate, true
}

// Format renders a projected price with two decimals, or Unavailable.
func Format(value float64, ok bool) string {
	if !ok {
		return Unavailable
	}

	return strconv.FormatFloat(value, 'f', 2, 64)
}
