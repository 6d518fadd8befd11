package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// SanitizeString strips control characters (except common whitespace) and
// trims surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// ParseAmount converts a query-string amount into a number once, at the
// boundary. Non-numeric and negative amounts are client-input errors and
// never reach the resolution engine.
func ParseAmount(raw string) (float64, error) {
	raw = SanitizeString(raw)
	if raw == "" {
		return 0, &ValidationError{
			Field:   "amountToPay",
			Message: "is required",
		}
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{
			Field:   "amountToPay",
			Message: "must be a number",
		}
	}

	if amount < 0 {
		return 0, &ValidationError{
			Field:   "amountToPay",
			Message: "must be non-negative",
		}
	}

	return amount, nil
}

// ValidateBankName checks and normalizes the bank identifier. Stored banks
// are lowercased, so the query side lowercases too.
func ValidateBankName(raw string) (string, error) {
	bank := strings.ToLower(SanitizeString(raw))
	if bank == "" {
		return "", &ValidationError{
			Field:   "bankName",
			Message: "is required",
		}
	}
	return bank, nil
}

// NormalizeInstrument trims and uppercases the requested instrument tag so
// it can be matched verbatim against stored tags. An unknown tag is not an
// error here; it simply matches no offer downstream.
func NormalizeInstrument(raw string) (string, error) {
	instrument := strings.ToUpper(SanitizeString(raw))
	if instrument == "" {
		return "", &ValidationError{
			Field:   "instrument",
			Message: "is required",
		}
	}
	return instrument, nil
}
