package parser

import (
	"testing"

	"bank-offers-api/internal/models"
)

func hasTag(tags []models.InstrumentTag, want models.InstrumentTag) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func TestExtractInstruments_Credit(t *testing.T) {
	tags := ExtractInstruments("10% off on hdfc credit cards", "min order ₹500")

	if !hasTag(tags, models.InstrumentCredit) {
		t.Errorf("Expected CREDIT tag, got %v", tags)
	}
	if len(tags) != 1 {
		t.Errorf("Expected exactly one tag, got %v", tags)
	}
}

func TestExtractInstruments_MultipleTags(t *testing.T) {
	tags := ExtractInstruments("flat ₹100 off on credit and debit cards", "also valid on upi payments")

	for _, want := range []models.InstrumentTag{models.InstrumentCredit, models.InstrumentDebit, models.InstrumentUPI} {
		if !hasTag(tags, want) {
			t.Errorf("Expected %s tag, got %v", want, tags)
		}
	}
}

func TestExtractInstruments_EMI(t *testing.T) {
	tags := ExtractInstruments("no cost emi on icici cards", "tenures of 3 and 6 months")

	if !hasTag(tags, models.InstrumentEMI) {
		t.Errorf("Expected EMI_OPTIONS tag, got %v", tags)
	}
}

func TestExtractInstruments_EMINegation(t *testing.T) {
	cases := []string{
		"₹200 off, no emi on this offer",
		"discount without emi support",
		"non-emi transactions only",
		"not available on emi purchases",
	}

	for _, text := range cases {
		tags := ExtractInstruments(text, "")
		if hasTag(tags, models.InstrumentEMI) {
			t.Errorf("%q: expected no EMI_OPTIONS tag, got %v", text, tags)
		}
	}
}

func TestExtractInstruments_EMIRequiresWholeWord(t *testing.T) {
	// "premium" contains "emi" but not as a token
	tags := ExtractInstruments("premium members get ₹50 off", "")

	if hasTag(tags, models.InstrumentEMI) {
		t.Errorf("Expected no EMI_OPTIONS tag for substring match, got %v", tags)
	}
}

func TestExtractInstruments_NetbankingVariants(t *testing.T) {
	for _, text := range []string{"5% off via netbanking", "5% off via net banking"} {
		tags := ExtractInstruments(text, "")
		if !hasTag(tags, models.InstrumentNetbanking) {
			t.Errorf("%q: expected NETBANKING tag, got %v", text, tags)
		}
	}
}

func TestExtractInstruments_OthersFallback(t *testing.T) {
	tags := ExtractInstruments("festive season special", "limited period")

	if len(tags) != 1 || tags[0] != models.InstrumentOthers {
		t.Errorf("Expected exactly {OTHERS}, got %v", tags)
	}
}

func TestExtractInstruments_CaseFolding(t *testing.T) {
	tags := ExtractInstruments("10% Off On HDFC CREDIT Cards", "MIN ORDER ₹500")

	if !hasTag(tags, models.InstrumentCredit) {
		t.Errorf("Expected CREDIT tag, got %v", tags)
	}
}
