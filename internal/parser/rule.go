// Package parser turns free-text bank offer strings into typed discount
// rules and constraints. All matching runs over trimmed, lowercased text;
// callers normalize before storage, the parsers normalize again defensively.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"bank-offers-api/internal/models"
)

// TextRule is a named predicate + extractor over a normalized headline.
// Rules are evaluated in the order of headlineRules; the first match wins,
// even when a later rule in the same string would yield a larger discount.
type TextRule struct {
	Name    string
	Extract func(text string) (models.ParsedRule, bool)
}

var (
	percentPattern  = regexp.MustCompile(`(\d+)\s*%`)
	cashbackPattern = regexp.MustCompile(`(?:cashback|save|off)[^\d₹]*₹?\s?([\d,]+)`)
	flatPattern     = regexp.MustCompile(`₹\s?([\d,]+)`)
)

// headlineRules is the fixed precedence list: percent beats cashback beats
// bare rupee amount beats no-cost. The ordering is a deliberate tie-break.
var headlineRules = []TextRule{
	{
		Name: "percent",
		Extract: func(text string) (models.ParsedRule, bool) {
			m := percentPattern.FindStringSubmatch(text)
			if m == nil {
				return models.ParsedRule{}, false
			}
			return models.ParsedRule{Kind: models.KindPercent, Magnitude: parseGroupedInt(m[1])}, true
		},
	},
	{
		Name: "cashback",
		Extract: func(text string) (models.ParsedRule, bool) {
			m := cashbackPattern.FindStringSubmatch(text)
			if m == nil {
				return models.ParsedRule{}, false
			}
			return models.ParsedRule{Kind: models.KindFlat, Magnitude: parseGroupedInt(m[1])}, true
		},
	},
	{
		Name: "flat",
		Extract: func(text string) (models.ParsedRule, bool) {
			m := flatPattern.FindStringSubmatch(text)
			if m == nil {
				return models.ParsedRule{}, false
			}
			return models.ParsedRule{Kind: models.KindFlat, Magnitude: parseGroupedInt(m[1])}, true
		},
	},
	{
		Name: "nocost",
		Extract: func(text string) (models.ParsedRule, bool) {
			if !strings.Contains(text, "no cost") {
				return models.ParsedRule{}, false
			}
			return models.ParsedRule{Kind: models.KindNoCost, Magnitude: 0}, true
		},
	},
}

// ParseOfferText extracts a discount rule from a headline. It never fails:
// a headline matching no rule degrades to KindUnknown with magnitude 0.
func ParseOfferText(text string) models.ParsedRule {
	text = strings.ToLower(text)

	for _, rule := range headlineRules {
		if parsed, ok := rule.Extract(text); ok {
			return parsed
		}
	}
	return models.ParsedRule{Kind: models.KindUnknown, Magnitude: 0}
}

// parseGroupedInt parses a comma-grouped integer ("1,500" -> 1500).
// The capture groups only ever hand it digits and commas, so a parse
// failure collapses to 0 rather than an error.
func parseGroupedInt(s string) float64 {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return float64(n)
}
