// Package textfold provides accent-insensitive text normalization helpers.
// This is part of the platform layer and contains no business logic.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, removes combining marks, and recomposes.
// "São Paulo" becomes "Sao Paulo".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold removes diacritical marks from s. Input that fails to transform is
// returned unchanged.
func Fold(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return folded
}

// Upper folds accents, uppercases and trims surrounding whitespace.
func Upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(Fold(s)))
}

// Lower folds accents, lowercases and trims surrounding whitespace.
func Lower(s string) string {
	return strings.ToLower(strings.TrimSpace(Fold(s)))
}
