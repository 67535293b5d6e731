package align

import (
	"fmt"
	"strings"
)

// Kind tags the variant of a [Span].
type Kind uint8

const (
	// KindMatch covers a run of source tokens and a run of target tokens that
	// were judged equivalent as a unit.
	KindMatch Kind = iota

	// KindInsert covers one target token with no source counterpart.
	KindInsert

	// KindRemove covers one source token with no target counterpart.
	KindRemove
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMatch:
		return "match"
	case KindInsert:
		return "insert"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Range is a half-open index interval [Start, End) into a token sequence.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens covered by r.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether r covers no tokens.
func (r Range) Empty() bool { return r.End <= r.Start }

// Span is one unit of alignment output. The zero-length side of an insert or
// remove is recorded as an empty Range positioned where the span sits, which
// keeps both sides of a [Path] contiguous.
type Span struct {
	Kind   Kind  `json:"kind"`
	Source Range `json:"source"`
	Target Range `json:"target"`

	// Rule names the matcher that produced the span.
	Rule Rule `json:"rule"`
}

// Insert returns a span consuming target token j, positioned after source
// prefix i.
func Insert(i, j int) Span {
	return Span{Kind: KindInsert, Source: Range{i, i}, Target: Range{j, j + 1}, Rule: RuleInsert}
}

// Remove returns a span consuming source token i, positioned after target
// prefix j.
func Remove(i, j int) Span {
	return Span{Kind: KindRemove, Source: Range{i, i + 1}, Target: Range{j, j}, Rule: RuleRemove}
}

// Match returns a span pairing source range src with target range tgt.
func Match(src, tgt Range, rule Rule) Span {
	return Span{Kind: KindMatch, Source: src, Target: tgt, Rule: rule}
}

// String renders s compactly, e.g. "match(0:1,0:1)" or "insert(1)".
func (s Span) String() string {
	switch s.Kind {
	case KindInsert:
		return fmt.Sprintf("insert(%d)", s.Target.Start)
	case KindRemove:
		return fmt.Sprintf("remove(%d)", s.Source.Start)
	default:
		return fmt.Sprintf("match(%d:%d,%d:%d,%s)", s.Source.Start, s.Source.End, s.Target.Start, s.Target.End, s.Rule)
	}
}

// Path is an ordered, monotonic sequence of spans covering both token
// sequences exactly once.
type Path []Span

// TrimTrailingInserts drops trailing insert spans, never reducing a non-empty
// path to empty. It is used while the learner is still speaking, so reference
// words that have not been attempted yet are not flagged.
func (p Path) TrimTrailingInserts() Path {
	n := len(p)
	for n > 1 && p[n-1].Kind == KindInsert {
		n--
	}
	return p[:n:n]
}

// Cost sums the standard cost of every span: 1 for inserts and removes,
// 0 for matches.
func (p Path) Cost() int {
	c := 0
	for _, s := range p {
		if s.Kind != KindMatch {
			c++
		}
	}
	return c
}

// String joins the spans with spaces.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// SpanKey groups spans for [Path.Tally].
type SpanKey struct {
	Kind Kind
	Rule Rule
}

// Tally counts the spans of p by kind and rule.
func (p Path) Tally() map[SpanKey]int {
	out := make(map[SpanKey]int)
	for _, s := range p {
		out[SpanKey{s.Kind, s.Rule}]++
	}
	return out
}
