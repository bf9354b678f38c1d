package server

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minAddressLength is the length below which an address must show some
// numeric or list structure to be believed.
const minAddressLength = 30

// IsValidAddress reports whether text is plausibly an address. Only strings
// shorter than minAddressLength runes that contain neither a digit nor a
// comma are rejected; anything longer, or anything with a digit or comma, is
// given the benefit of the doubt.
func IsValidAddress(text string) bool {
	if utf8.RuneCountInString(text) >= minAddressLength {
		return true
	}
	// Digits in any script count: addresses here are as likely to carry
	// Arabic-Indic numerals as ASCII ones.
	return strings.ContainsRune(text, ',') || strings.ContainsFunc(text, unicode.IsDigit)
}
