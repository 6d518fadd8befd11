package parser

import (
	"regexp"
	"strings"

	"bank-offers-api/internal/models"
)

// instrumentRule pairs an instrument tag with its detection predicate.
// Rules fire independently; a single offer can carry several tags.
type instrumentRule struct {
	tag   models.InstrumentTag
	match func(text string) bool
}

var (
	emiWordPattern     = regexp.MustCompile(`\bemi\b`)
	emiNegationPattern = regexp.MustCompile(`\b(no emi|without emi|non-emi|not available on emi)\b`)
)

var instrumentRules = []instrumentRule{
	{
		tag: models.InstrumentEMI,
		// A whole-word "emi" counts only when the text does not negate it.
		match: func(text string) bool {
			return emiWordPattern.MatchString(text) && !emiNegationPattern.MatchString(text)
		},
	},
	{
		tag:   models.InstrumentCredit,
		match: func(text string) bool { return strings.Contains(text, "credit") },
	},
	{
		tag:   models.InstrumentDebit,
		match: func(text string) bool { return strings.Contains(text, "debit") },
	},
	{
		tag:   models.InstrumentUPI,
		match: func(text string) bool { return strings.Contains(text, "upi") },
	},
	{
		tag: models.InstrumentNetbanking,
		match: func(text string) bool {
			return strings.Contains(text, "netbanking") || strings.Contains(text, "net banking")
		},
	},
}

// ExtractInstruments classifies an offer's headline and fine print into a
// set of payment-instrument tags. When nothing matches it returns {OTHERS},
// so every offer carries at least one tag. Pure function, no side effects.
func ExtractInstruments(offerText, offerDescription string) []models.InstrumentTag {
	combined := strings.ToLower(offerText + " " + offerDescription)

	var tags []models.InstrumentTag
	for _, rule := range instrumentRules {
		if rule.match(combined) {
			tags = append(tags, rule.tag)
		}
	}

	if len(tags) == 0 {
		tags = append(tags, models.InstrumentOthers)
	}
	return tags
}
