// Package phone validates and normalizes international phone numbers.
//
// Numbers are accepted in loose human formats ("+1 (415) 555-0100",
// "1 415 555 0100") and normalized to E.164 digits without the leading
// plus sign, which is the form the protocol layer and the credential
// store key expect.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Number is an E.164-normalized phone number with the leading "+" stripped.
// It contains only digits.
type Number string

// ErrInvalidNumber indicates the input is not a plausible international
// phone number.
var ErrInvalidNumber = errors.New("invalid phone number")

// String returns the digit string.
func (n Number) String() string {
	return string(n)
}

// Normalize validates raw input and returns the E.164 digit form.
//
// A leading "+" is optional; spaces, hyphens and parentheses are tolerated.
// Returns ErrInvalidNumber when the input is empty, non-numeric, or not a
// valid number for any region.
func Normalize(raw string) (Number, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}

	// Parsing requires the international prefix; callers routinely omit it.
	if !strings.HasPrefix(trimmed, "+") {
		trimmed = "+" + trimmed
	}

	parsed, err := phonenumbers.Parse(trimmed, "")
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalidNumber
	}

	e164 := phonenumbers.Format(parsed, phonenumbers.E164)
	return Number(strings.TrimPrefix(e164, "+")), nil
}
