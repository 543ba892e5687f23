// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// identityDigitsMax caps the digits kept for identity comparison. Keeping
// only the tail drops country-code ambiguity (+55 11 9... vs 11 9...).
const identityDigitsMax = 13

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IdentityDigits reduces a phone number to the digits used for duplicate
// detection: digits only, at most the last 13 kept. Returns "" when the
// input has no digits.
func IdentityDigits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > identityDigitsMax {
		digits = digits[len(digits)-identityDigitsMax:]
	}
	return digits
}
