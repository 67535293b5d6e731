// Package phonetic decides whether a misheard word is a near miss of the
// expected one, so feedback can say "you wrote X, did you mean Y?" instead of
// flagging two unrelated mistakes.
//
// Two words are compared in two stages:
//
//  1. Phonetic filtering: Double Metaphone codes are computed for both words.
//     If the code sets overlap, the pair is a phonetic candidate and needs a
//     Jaro-Winkler similarity of at least the phonetic threshold.
//
//  2. Fuzzy fallback: without phonetic overlap the pair needs the higher
//     fuzzy threshold.
//
// Double Metaphone is tuned for English spelling; for German words it acts as
// a coarse consonant-skeleton filter, which is all the hint needs.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option configures a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the Jaro-Winkler score required when the words
// share a phonetic code. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the Jaro-Winkler score required when the words
// share no phonetic code. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher compares words. It is read-only after construction and safe for
// concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Matcher] configured with opts.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Result describes one comparison.
type Result struct {
	// Score is the Jaro-Winkler similarity in [0, 1].
	Score float64
	// Phonetic reports whether the Double Metaphone codes overlap.
	Phonetic bool
	// Near reports whether the pair passed the applicable threshold.
	Near bool
}

// Compare compares heard against expected, case-insensitively.
func (m *Matcher) Compare(heard, expected string) Result {
	h := strings.ToLower(strings.TrimSpace(heard))
	e := strings.ToLower(strings.TrimSpace(expected))
	if h == "" || e == "" {
		return Result{}
	}
	r := Result{
		Score:    matchr.JaroWinkler(h, e, false),
		Phonetic: codesOverlap(codes(h), codes(e)),
	}
	if r.Phonetic {
		r.Near = r.Score >= m.phoneticThreshold
	} else {
		r.Near = r.Score >= m.fuzzyThreshold
	}
	return r
}

// Closest returns the index of the candidate heard is a near miss of. A
// phonetic candidate beats a fuzzy one; within a class the higher score wins
// and ties go to the earlier candidate. ok is false when no candidate is
// near.
func (m *Matcher) Closest(heard string, candidates []string) (idx int, r Result, ok bool) {
	idx = -1
	for i, c := range candidates {
		cr := m.Compare(heard, c)
		if !cr.Near {
			continue
		}
		better := idx < 0 ||
			(cr.Phonetic && !r.Phonetic) ||
			(cr.Phonetic == r.Phonetic && cr.Score > r.Score)
		if better {
			idx, r = i, cr
		}
	}
	return idx, r, idx >= 0
}

// codes returns the non-empty Double Metaphone codes of word.
func codes(word string) map[string]struct{} {
	out := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		out[p] = struct{}{}
	}
	if s != "" {
		out[s] = struct{}{}
	}
	return out
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
