package align

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/MrWong99/diktat/internal/numwords"
)

// Rule labels the matcher that explained a span. Renderers use it to tell a
// literal match from a semantic one.
type Rule string

const (
	RuleExact   Rule = "exact"
	RuleMerge   Rule = "merge"
	RuleSplit   Rule = "split"
	RulePhrase  Rule = "phrase"
	RuleNumeral Rule = "numeral"
	RuleClock   Rule = "clock"
	RuleInsert  Rule = "insert"
	RuleRemove  Rule = "remove"
)

// Cell is the view a [Matcher] gets of one DP cell: the two sequences and the
// prefix lengths I (source) and J (target). The trailing tokens are
// Source[I-1] and Target[J-1].
//
// One Cell is reused for every cell of an alignment call, so keys computed
// through [Cell.Key] are shared across the whole table.
type Cell struct {
	Source    []string
	Target    []string
	I, J      int
	Normalize NormalizeFunc

	keys map[string]string
}

// Key returns the normalized form of word, computing it at most once per
// alignment call.
func (c *Cell) Key(word string) string {
	if k, ok := c.keys[word]; ok {
		return k
	}
	if c.keys == nil {
		c.keys = make(map[string]string)
	}
	k := c.Normalize(word)
	c.keys[word] = k
	return k
}

// Equal reports whether a and b normalize to the same key.
func (c *Cell) Equal(a, b string) bool {
	return c.Key(a) == c.Key(b)
}

// Proposal is a matcher's explanation of the trailing tokens of a cell: it
// consumes Source source tokens and Target target tokens for Cost.
type Proposal struct {
	Source int
	Target int
	Cost   int
}

// Matcher proposes one way to align the trailing tokens of a cell.
//
// Implementations must be pure: the proposal may depend only on the cell.
// Returning false declines.
type Matcher interface {
	Name() Rule
	Propose(c *Cell) (Proposal, bool)
}

// ── exact ────────────────────────────────────────────────────────────────────

type exactMatcher struct{}

func (exactMatcher) Name() Rule { return RuleExact }

func (exactMatcher) Propose(c *Cell) (Proposal, bool) {
	if c.I < 1 || c.J < 1 || !c.Equal(c.Source[c.I-1], c.Target[c.J-1]) {
		return Proposal{}, false
	}
	return Proposal{Source: 1, Target: 1}, true
}

// ── adjacency merge / split ──────────────────────────────────────────────────

// joinsTo reports whether the two tokens a and b, joined with a hyphen or with
// no separator, normalize equal to whole.
func joinsTo(c *Cell, a, b, whole string) bool {
	key := c.Key(whole)
	return c.Key(a+"-"+b) == key || c.Key(a+b) == key
}

// mergeMatcher aligns two source tokens to one target token
// ("Kaffee Desaster" → "Kaffee-Desaster", "Montag Morgen" → "Montagmorgen").
type mergeMatcher struct{}

func (mergeMatcher) Name() Rule { return RuleMerge }

func (mergeMatcher) Propose(c *Cell) (Proposal, bool) {
	if c.I < 2 || c.J < 1 {
		return Proposal{}, false
	}
	if !joinsTo(c, c.Source[c.I-2], c.Source[c.I-1], c.Target[c.J-1]) {
		return Proposal{}, false
	}
	return Proposal{Source: 2, Target: 1}, true
}

// splitMatcher is the mirror of mergeMatcher: one source token aligns to two
// target tokens ("Kaffee-Desaster" → "Kaffee Desaster").
type splitMatcher struct{}

func (splitMatcher) Name() Rule { return RuleSplit }

func (splitMatcher) Propose(c *Cell) (Proposal, bool) {
	if c.I < 1 || c.J < 2 {
		return Proposal{}, false
	}
	if !joinsTo(c, c.Target[c.J-2], c.Target[c.J-1], c.Source[c.I-1]) {
		return Proposal{}, false
	}
	return Proposal{Source: 1, Target: 2}, true
}

// ── fixed phrases ────────────────────────────────────────────────────────────

type phraseMatcher struct {
	table *PhraseTable
}

func (phraseMatcher) Name() Rule { return RulePhrase }

func (m phraseMatcher) Propose(c *Cell) (Proposal, bool) {
	for _, p := range m.table.phrases {
		if len(p.Source) > c.I || len(p.Target) > c.J {
			continue
		}
		if !trailingEqual(c, c.Source[:c.I], p.Source) || !trailingEqual(c, c.Target[:c.J], p.Target) {
			continue
		}
		return Proposal{Source: len(p.Source), Target: len(p.Target)}, true
	}
	return Proposal{}, false
}

// trailingEqual reports whether the last len(want) tokens of seq normalize
// equal to want, token by token.
func trailingEqual(c *Cell, seq, want []string) bool {
	off := len(seq) - len(want)
	for k, w := range want {
		if !c.Equal(seq[off+k], w) {
			return false
		}
	}
	return true
}

// ── numerals ─────────────────────────────────────────────────────────────────

var numeralPattern = regexp.MustCompile(`^-?[0-9]+$`)

// numeral returns the integer literal in tok, ignoring trailing punctuation.
func numeral(tok string) (int, bool) {
	tok = strings.TrimRightFunc(tok, unicode.IsPunct)
	if !numeralPattern.MatchString(tok) {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

// numeralMatcher aligns a digit string with its spelled-out German cardinal
// in either direction ("324" ↔ "dreihundertvierundzwanzig").
type numeralMatcher struct{}

func (numeralMatcher) Name() Rule { return RuleNumeral }

func (numeralMatcher) Propose(c *Cell) (Proposal, bool) {
	if c.I < 1 || c.J < 1 {
		return Proposal{}, false
	}
	src, tgt := c.Source[c.I-1], c.Target[c.J-1]
	sn, sIsNum := numeral(src)
	tn, tIsNum := numeral(tgt)
	if sIsNum == tIsNum {
		return Proposal{}, false
	}
	n, word := sn, tgt
	if tIsNum {
		n, word = tn, src
	}
	spelled, err := numwords.German(n)
	if err != nil {
		return Proposal{}, false
	}
	if !c.Equal(spelled, word) {
		return Proposal{}, false
	}
	return Proposal{Source: 1, Target: 1}, true
}

// ── clock time ───────────────────────────────────────────────────────────────

var halfPastPattern = regexp.MustCompile(`^([0-9]{1,2}):30\p{P}*$`)

// clockMatcher aligns "<H>:30 Uhr" in the source with "halb <H+1>" in the
// target, where the hour may be digits or a German number word.
type clockMatcher struct{}

func (clockMatcher) Name() Rule { return RuleClock }

func (clockMatcher) Propose(c *Cell) (Proposal, bool) {
	if c.I < 2 || c.J < 2 {
		return Proposal{}, false
	}
	if !c.Equal(c.Source[c.I-1], "Uhr") || !c.Equal(c.Target[c.J-2], "halb") {
		return Proposal{}, false
	}
	m := halfPastPattern.FindStringSubmatch(c.Source[c.I-2])
	if m == nil {
		return Proposal{}, false
	}
	h, err := strconv.Atoi(m[1])
	if err != nil || h > 24 {
		return Proposal{}, false
	}
	for _, next := range nextHours(h) {
		if hourMatches(c, next, c.Target[c.J-1]) {
			return Proposal{Source: 2, Target: 2}, true
		}
	}
	return Proposal{}, false
}

// nextHours lists the readings of "the hour after h": 24-hour, and 12-hour
// with 0 read as 12.
func nextHours(h int) []int {
	next := h + 1
	twelve := next % 12
	if twelve == 0 {
		twelve = 12
	}
	return []int{next, twelve, next % 24}
}

func hourMatches(c *Cell, hour int, tok string) bool {
	if n, ok := numeral(tok); ok {
		return n == hour
	}
	word, err := numwords.German(hour)
	return err == nil && c.Equal(word, tok)
}

// ── insert / remove ──────────────────────────────────────────────────────────

type insertMatcher struct{}

func (insertMatcher) Name() Rule { return RuleInsert }

func (insertMatcher) Propose(c *Cell) (Proposal, bool) {
	if c.J < 1 {
		return Proposal{}, false
	}
	return Proposal{Target: 1, Cost: 1}, true
}

type removeMatcher struct{}

func (removeMatcher) Name() Rule { return RuleRemove }

func (removeMatcher) Propose(c *Cell) (Proposal, bool) {
	if c.I < 1 {
		return Proposal{}, false
	}
	return Proposal{Source: 1, Cost: 1}, true
}

// Constructors for the individual matchers, for callers assembling a custom
// set with [WithMatchers].

func ExactMatcher() Matcher   { return exactMatcher{} }
func MergeMatcher() Matcher   { return mergeMatcher{} }
func SplitMatcher() Matcher   { return splitMatcher{} }
func NumeralMatcher() Matcher { return numeralMatcher{} }
func ClockMatcher() Matcher   { return clockMatcher{} }
func InsertMatcher() Matcher  { return insertMatcher{} }
func RemoveMatcher() Matcher  { return removeMatcher{} }

// PhraseMatcher matches the phrases of t. A nil t uses [DefaultPhrases].
func PhraseMatcher(t *PhraseTable) Matcher {
	if t == nil {
		t = DefaultPhrases()
	}
	return phraseMatcher{table: t}
}

// StandardMatchers returns the matcher set in priority order. When split is
// false the adjacency split matcher is left out and merges only work in the
// source-to-target direction.
func StandardMatchers(phrases *PhraseTable, split bool) []Matcher {
	ms := []Matcher{ExactMatcher(), MergeMatcher()}
	if split {
		ms = append(ms, SplitMatcher())
	}
	return append(ms,
		PhraseMatcher(phrases),
		NumeralMatcher(),
		ClockMatcher(),
		InsertMatcher(),
		RemoveMatcher(),
	)
}
