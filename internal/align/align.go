// Package align computes a linguistically aware alignment between what a
// learner said (the source tokens, taken from a speech transcript) and the
// reference sentence (the target tokens).
//
// The engine is an edit-path dynamic program in the spirit of Levenshtein
// distance without substitution. At every cell an ordered set of [Matcher]
// values proposes explanations for the trailing tokens together with a cost;
// the cheapest proposal wins and ties go to the earlier matcher. Besides
// plain word equality the standard set understands the distortions speech
// recognizers introduce in German:
//
//   - compounds written with or without a hyphen ("Kaffee Desaster" ↔ "Kaffee-Desaster"),
//   - registered phrases ("z. B." ↔ "zum Beispiel"),
//   - numerals as digits or words ("324" ↔ "dreihundertvierundzwanzig"),
//   - clock times ("6:30 Uhr" ↔ "halb 7").
//
// Every call allocates its own tables; an [Aligner] is immutable after
// construction and safe for concurrent use.
package align

import "slices"

// Option configures an [Aligner].
type Option func(*Aligner)

// WithNormalizer sets the token normalizer. Default: [Normalize].
func WithNormalizer(fn NormalizeFunc) Option {
	return func(a *Aligner) {
		if fn != nil {
			a.normalize = fn
		}
	}
}

// WithPhrases replaces the fixed-phrase table. Default: [DefaultPhrases].
func WithPhrases(t *PhraseTable) Option {
	return func(a *Aligner) {
		if t != nil {
			a.phrases = t
		}
	}
}

// WithoutSplit disables the adjacency split matcher, so a hyphenated source
// token no longer matches two target tokens.
func WithoutSplit() Option {
	return func(a *Aligner) {
		a.split = false
	}
}

// WithMatchers replaces the whole matcher set. The order is the tie-break
// order. Insert and remove matchers are always appended after ms so every
// cell stays reachable; listing them explicitly only changes their position.
func WithMatchers(ms ...Matcher) Option {
	return func(a *Aligner) {
		a.custom = ms
	}
}

// Aligner holds a normalizer and an ordered matcher set.
type Aligner struct {
	normalize NormalizeFunc
	phrases   *PhraseTable
	split     bool
	custom    []Matcher
	matchers  []Matcher
}

// New returns an [Aligner] using the standard matcher set unless overridden.
func New(opts ...Option) *Aligner {
	a := &Aligner{
		normalize: Normalize,
		phrases:   DefaultPhrases(),
		split:     true,
	}
	for _, o := range opts {
		o(a)
	}
	if a.custom != nil {
		a.matchers = append(slices.Clone(a.custom), InsertMatcher(), RemoveMatcher())
	} else {
		a.matchers = StandardMatchers(a.phrases, a.split)
	}
	return a
}

// Matchers returns the matcher set in priority order.
func (a *Aligner) Matchers() []Matcher {
	out := make([]Matcher, len(a.matchers))
	copy(out, a.matchers)
	return out
}

// Normalizer returns the normalizer used by a.
func (a *Aligner) Normalizer() NormalizeFunc { return a.normalize }

// EditPath aligns source with target and returns the minimum-cost path.
func (a *Aligner) EditPath(source, target []string) Path {
	p, _ := a.Align(source, target)
	return p
}

// Align is like [Aligner.EditPath] but also returns the total cost of the
// path under the matchers' cost model.
func (a *Aligner) Align(source, target []string) (Path, int) {
	t := newTable(len(source), len(target))
	t.fill(source, target, a.normalize, a.matchers)
	return t.walk(), t.cost[len(source)][len(target)]
}

// EditPath aligns source with target using normalize and the standard
// matcher set with the seed phrase table.
func EditPath(source, target []string, normalize NormalizeFunc) Path {
	return New(WithNormalizer(normalize)).EditPath(source, target)
}
