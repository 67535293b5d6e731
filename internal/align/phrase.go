package align

import (
	"errors"
	"fmt"
	"slices"
)

// ErrEmptyPhrase is returned by [NewPhraseTable] when a phrase has no tokens
// on one of its sides.
var ErrEmptyPhrase = errors.New("align: phrase side is empty")

// Phrase is a registered fixed substitution: the Source tokens as the learner
// (or the recognizer) says them, and the Target tokens as they are written in
// the reference sentence. The sides may differ in length.
type Phrase struct {
	Source []string
	Target []string
}

// PhraseTable is an immutable, ordered set of phrases. Earlier phrases win
// when several apply to the same cell.
type PhraseTable struct {
	phrases []Phrase
}

// seedPhrases is the built-in table.
var seedPhrases = []Phrase{
	{Source: []string{"Café", "Desaster"}, Target: []string{"Kaffee-Desaster"}},
	{Source: []string{"z.", "B."}, Target: []string{"zum", "Beispiel"}},
	{Source: []string{"z.B"}, Target: []string{"zum", "Beispiel"}},
}

// NewPhraseTable validates phrases and returns a table holding a private copy
// of them.
func NewPhraseTable(phrases ...Phrase) (*PhraseTable, error) {
	var errs []error
	t := &PhraseTable{phrases: make([]Phrase, 0, len(phrases))}
	for i, p := range phrases {
		if len(p.Source) == 0 || len(p.Target) == 0 {
			errs = append(errs, fmt.Errorf("phrase %d (%q → %q): %w", i, p.Source, p.Target, ErrEmptyPhrase))
			continue
		}
		t.phrases = append(t.phrases, Phrase{
			Source: slices.Clone(p.Source),
			Target: slices.Clone(p.Target),
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultPhrases returns the seed table.
func DefaultPhrases() *PhraseTable {
	t, err := NewPhraseTable(seedPhrases...)
	if err != nil {
		panic("align: invalid seed phrase table: " + err.Error())
	}
	return t
}

// WithSeed returns a table holding the seed phrases followed by extra.
func WithSeed(extra ...Phrase) (*PhraseTable, error) {
	return NewPhraseTable(append(slices.Clone(seedPhrases), extra...)...)
}

// Phrases returns a copy of the registered phrases in priority order.
func (t *PhraseTable) Phrases() []Phrase {
	out := make([]Phrase, len(t.phrases))
	for i, p := range t.phrases {
		out[i] = Phrase{Source: slices.Clone(p.Source), Target: slices.Clone(p.Target)}
	}
	return out
}

// Len returns the number of phrases in t.
func (t *PhraseTable) Len() int { return len(t.phrases) }
