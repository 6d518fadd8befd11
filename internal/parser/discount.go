package parser

import (
	"math"

	"bank-offers-api/internal/models"
)

// Discount computes the discount a parsed rule yields on an order amount,
// bounded by the fine print's cap. No-cost and unknown rules yield 0:
// a no-cost EMI framing is an interest waiver, not a price reduction.
// Rounding to the currency's minor unit is left to the caller.
func Discount(amount float64, rule models.ParsedRule, maxCap float64) float64 {
	switch rule.Kind {
	case models.KindPercent:
		return math.Min(amount*rule.Magnitude/100, maxCap)
	case models.KindFlat:
		return math.Min(rule.Magnitude, maxCap)
	default:
		return 0
	}
}
