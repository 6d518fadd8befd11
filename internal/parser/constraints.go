package parser

import (
	"math"
	"regexp"
	"strings"

	"bank-offers-api/internal/models"
)

var (
	minOrderPattern = regexp.MustCompile(`min(?:imum)?(?: order)?(?: of)? ₹?(\d+)`)
	maxCapPattern   = regexp.MustCompile(`(?:up to|max(?:imum)?) ₹?(\d+)`)
)

// ParseConstraints extracts the minimum order value and maximum discount
// cap from an offer's fine print. Absent patterns yield the defaults:
// min 0, cap +Inf. No sanity bounds are applied to the values.
func ParseConstraints(desc string) models.Constraints {
	desc = strings.ToLower(desc)

	c := models.Constraints{
		MinOrderValue:  0,
		MaxDiscountCap: math.Inf(1),
	}

	if m := minOrderPattern.FindStringSubmatch(desc); m != nil {
		c.MinOrderValue = parseGroupedInt(m[1])
	}
	if m := maxCapPattern.FindStringSubmatch(desc); m != nil {
		c.MaxDiscountCap = parseGroupedInt(m[1])
	}
	return c
}
