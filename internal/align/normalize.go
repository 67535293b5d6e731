package align

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeFunc maps a token to the key used for equality comparison.
// Implementations must be total and idempotent.
type NormalizeFunc func(word string) string

// Normalize uppercases word and strips every rune in Unicode general category
// P (punctuation), so trailing commas, sentence-final periods, dashes and the
// various quotation-mark glyphs never cause a mismatch. German uppercasing
// maps ß to SS.
func Normalize(word string) string {
	// Casers and chained transformers are stateful; build one per call so
	// Normalize stays safe for concurrent use.
	t := transform.Chain(
		cases.Upper(language.German),
		runes.Remove(runes.In(unicode.P)),
		norm.NFC,
	)
	out, _, err := transform.String(t, word)
	if err != nil {
		return word
	}
	return out
}

// Identity is a NormalizeFunc that compares tokens verbatim.
func Identity(word string) string { return word }
