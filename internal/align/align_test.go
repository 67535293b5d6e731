package align_test

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/diktat/internal/align"
)

func r(start, end int) align.Range { return align.Range{Start: start, End: end} }

// match11 is a plain one-to-one exact match of source i and target j.
func match11(i, j int) align.Span {
	return align.Match(r(i, i+1), r(j, j+1), align.RuleExact)
}

func assertPath(t *testing.T, got, want align.Path) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("path mismatch\n got: %v\nwant: %v", got, want)
	}
}

// assertCoverage checks that the spans are monotonic and cover every source
// and target index exactly once.
func assertCoverage(t *testing.T, p align.Path, n, m int) {
	t.Helper()
	si, tj := 0, 0
	for k, s := range p {
		if s.Source.Start != si || s.Target.Start != tj {
			t.Fatalf("span %d (%v) starts at (%d, %d), want (%d, %d)", k, s, s.Source.Start, s.Target.Start, si, tj)
		}
		switch s.Kind {
		case align.KindInsert:
			if s.Source.Len() != 0 || s.Target.Len() != 1 {
				t.Fatalf("insert span %d has shape %d:%d", k, s.Source.Len(), s.Target.Len())
			}
		case align.KindRemove:
			if s.Source.Len() != 1 || s.Target.Len() != 0 {
				t.Fatalf("remove span %d has shape %d:%d", k, s.Source.Len(), s.Target.Len())
			}
		}
		si, tj = s.Source.End, s.Target.End
	}
	if si != n || tj != m {
		t.Fatalf("path ends at (%d, %d), want (%d, %d)", si, tj, n, m)
	}
}

func TestEditPath_Empty(t *testing.T) {
	t.Parallel()

	got := align.EditPath(nil, nil, align.Normalize)
	if len(got) != 0 {
		t.Fatalf("EditPath(empty, empty) = %v, want []", got)
	}
}

func TestEditPath_FromEmpty(t *testing.T) {
	t.Parallel()

	got := align.EditPath(nil, []string{"a", "b", "c"}, align.Normalize)
	assertPath(t, got, align.Path{align.Insert(0, 0), align.Insert(0, 1), align.Insert(0, 2)})
}

func TestEditPath_ToEmpty(t *testing.T) {
	t.Parallel()

	got := align.EditPath([]string{"a", "b"}, nil, align.Normalize)
	assertPath(t, got, align.Path{align.Remove(0, 0), align.Remove(1, 0)})
}

func TestEditPath_Identity(t *testing.T) {
	t.Parallel()

	sentences := []string{
		"a b",
		"Es ist ein schöner Montagmorgen in Berlin.",
		"Die Sonne scheint und die Vögel zwitschern fröhlich in den Bäumen.",
		"Kaffee Desaster KaffeeDesaster Kaffee-Desaster",
		"um 6:30 Uhr halb 7 z. B. 324",
	}
	for _, s := range sentences {
		words := strings.Fields(s)
		got := align.EditPath(words, words, align.Normalize)
		if len(got) != len(words) {
			t.Fatalf("identity %q: %d spans, want %d", s, len(got), len(words))
		}
		for i, sp := range got {
			if sp != match11(i, i) {
				t.Errorf("identity %q: span %d = %v, want %v", s, i, sp, match11(i, i))
			}
		}
	}
}

func TestEditPath_InsertInMiddle(t *testing.T) {
	t.Parallel()

	got := align.EditPath([]string{"a", "c"}, []string{"a", "b", "c"}, align.Identity)
	assertPath(t, got, align.Path{match11(0, 0), align.Insert(1, 1), match11(1, 2)})
}

func TestEditPath_RemoveInMiddle(t *testing.T) {
	t.Parallel()

	got := align.EditPath([]string{"a", "b", "c"}, []string{"a", "c"}, align.Identity)
	assertPath(t, got, align.Path{match11(0, 0), align.Remove(1, 1), match11(2, 1)})
}

func TestEditPath_InsertPreferredOnTie(t *testing.T) {
	t.Parallel()

	// Both orders cost 2. The final cell keeps the insert because it comes
	// first in priority order, so the remove of "x" is walked first.
	got := align.EditPath([]string{"x"}, []string{"y"}, align.Identity)
	assertPath(t, got, align.Path{align.Remove(0, 0), align.Insert(1, 0)})
}

func TestEditPath_Merge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		target    string
		normalize align.NormalizeFunc
	}{
		{"hyphen", "Kaffee-Desaster", align.Identity},
		{"no separator", "KaffeeDesaster", align.Identity},
		{"hyphen normalized", "Kaffee-Desaster", align.Normalize},
		{"lower-case normalized", "kaffeedesaster", align.Normalize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			source := []string{"ein", "Kaffee", "Desaster", "test"}
			target := []string{"ein", tt.target, "test"}
			got := align.EditPath(source, target, tt.normalize)
			assertPath(t, got, align.Path{
				match11(0, 0),
				align.Match(r(1, 3), r(1, 2), align.RuleMerge),
				match11(3, 2),
			})
		})
	}
}

func TestEditPath_Split(t *testing.T) {
	t.Parallel()

	source := []string{"ein", "Kaffee-Desaster", "test"}
	target := []string{"ein", "Kaffee", "Desaster", "test"}

	got := align.EditPath(source, target, align.Normalize)
	assertPath(t, got, align.Path{
		match11(0, 0),
		align.Match(r(1, 2), r(1, 3), align.RuleSplit),
		match11(2, 3),
	})

	noSplit := align.New(align.WithoutSplit())
	p, cost := noSplit.Align(source, target)
	if cost != 3 {
		t.Fatalf("cost without split = %d, want 3 (%v)", cost, p)
	}
	assertCoverage(t, p, len(source), len(target))
	for _, sp := range p {
		if sp.Rule == align.RuleSplit {
			t.Fatalf("split span %v produced with split disabled", sp)
		}
	}
}

func TestEditPath_SpecialPhrases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source []string
		target []string
		want   align.Path
	}{
		{
			name:   "cafe desaster",
			source: []string{"ein", "Café", "Desaster", "test"},
			target: []string{"ein", "Kaffee-Desaster", "test"},
			want: align.Path{
				match11(0, 0),
				align.Match(r(1, 3), r(1, 2), align.RulePhrase),
				match11(3, 2),
			},
		},
		{
			name:   "z. B.",
			source: []string{"z.", "B.", "Äpfel"},
			target: []string{"zum", "Beispiel", "Äpfel"},
			want: align.Path{
				align.Match(r(0, 2), r(0, 2), align.RulePhrase),
				match11(2, 2),
			},
		},
		{
			name:   "z.B",
			source: []string{"z.B", "Äpfel"},
			target: []string{"zum", "Beispiel", "Äpfel"},
			want: align.Path{
				align.Match(r(0, 1), r(0, 2), align.RulePhrase),
				match11(1, 2),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assertPath(t, align.EditPath(tt.source, tt.target, align.Normalize), tt.want)
		})
	}
}

func TestEditPath_Numeral(t *testing.T) {
	t.Parallel()

	got := align.EditPath([]string{"a", "324", "b"}, []string{"a", "dreihundertvierundzwanzig", "b"}, align.Normalize)
	assertPath(t, got, align.Path{
		match11(0, 0),
		align.Match(r(1, 2), r(1, 2), align.RuleNumeral),
		match11(2, 2),
	})

	// The word may also be on the source side, with trailing punctuation.
	got = align.EditPath([]string{"Zwanzig"}, []string{"20."}, align.Normalize)
	assertPath(t, got, align.Path{align.Match(r(0, 1), r(0, 1), align.RuleNumeral)})
}

func TestEditPath_NumeralOutOfRange(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"43654", "-1"} {
		_, cost := align.New().Align([]string{tok}, []string{"null"})
		if cost != 2 {
			t.Errorf("%q vs null: cost = %d, want 2", tok, cost)
		}
	}
}

func TestEditPath_ClockTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source []string
		target []string
	}{
		{"digit hour", []string{"a", "6:30", "Uhr", "b"}, []string{"a", "halb", "7", "b"}},
		{"word hour", []string{"a", "6:30", "Uhr", "b"}, []string{"a", "halb", "sieben", "b"}},
		{"twelve hour clock", []string{"a", "18:30", "Uhr", "b"}, []string{"a", "halb", "sieben", "b"}},
		{"past noon wraps", []string{"a", "12:30", "Uhr", "b"}, []string{"a", "halb", "eins", "b"}},
		{"punctuation", []string{"a", "6:30", "Uhr,", "b"}, []string{"a", "Halb", "7.", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := align.EditPath(tt.source, tt.target, align.Normalize)
			assertPath(t, got, align.Path{
				match11(0, 0),
				align.Match(r(1, 3), r(1, 3), align.RuleClock),
				match11(3, 3),
			})
		})
	}
}

func TestEditPath_ClockTimeWrongHour(t *testing.T) {
	t.Parallel()

	_, cost := align.New().Align([]string{"6:30", "Uhr"}, []string{"halb", "acht"})
	if cost == 0 {
		t.Fatal("6:30 Uhr aligned with halb acht at zero cost")
	}
}

func TestEditPath_TieBreakByOrder(t *testing.T) {
	t.Parallel()

	phrases, err := align.NewPhraseTable(align.Phrase{
		Source: []string{"Kaffee", "Desaster"},
		Target: []string{"KaffeeDesaster"},
	})
	if err != nil {
		t.Fatalf("NewPhraseTable: %v", err)
	}
	source := []string{"Kaffee", "Desaster"}
	target := []string{"KaffeeDesaster"}

	// Merge precedes phrase in the standard order.
	got := align.New(align.WithPhrases(phrases)).EditPath(source, target)
	assertPath(t, got, align.Path{align.Match(r(0, 2), r(0, 1), align.RuleMerge)})

	// Reordering the set changes only the label.
	custom := align.New(align.WithMatchers(
		align.PhraseMatcher(phrases),
		align.MergeMatcher(),
		align.InsertMatcher(),
		align.RemoveMatcher(),
	))
	got = custom.EditPath(source, target)
	assertPath(t, got, align.Path{align.Match(r(0, 2), r(0, 1), align.RulePhrase)})
}

func TestAlign_CostSymmetry(t *testing.T) {
	t.Parallel()

	plain := align.New(align.WithMatchers(
		align.ExactMatcher(),
		align.InsertMatcher(),
		align.RemoveMatcher(),
	))
	pairs := [][2]string{
		{"a b c d", "a c d e"},
		{"der die das", "das die der"},
		{"x y z", ""},
		{"Es ist ein schöner Montag", "Es war ein Montag"},
	}
	for _, pr := range pairs {
		a, b := strings.Fields(pr[0]), strings.Fields(pr[1])
		_, ab := plain.Align(a, b)
		_, ba := plain.Align(b, a)
		if ab != ba {
			t.Errorf("cost(%q→%q) = %d, cost(reverse) = %d", pr[0], pr[1], ab, ba)
		}
	}
}

func TestAlign_Coverage(t *testing.T) {
	t.Parallel()

	a := align.New()
	pairs := [][2]string{
		{"ein Kaffee Desaster test", "ein Kaffee-Desaster test"},
		{"ich komme um 6:30 Uhr nach Hause", "Ich komme um halb sieben nach Hause."},
		{"das kostet 324 Euro z. B.", "Das kostet dreihundertvierundzwanzig Euro, zum Beispiel."},
		{"völlig anders", "Die Sonne scheint und die Vögel zwitschern"},
		{"", "nur Ziel"},
		{"nur Quelle", ""},
	}
	for _, pr := range pairs {
		s, tg := strings.Fields(pr[0]), strings.Fields(pr[1])
		p, cost := a.Align(s, tg)
		assertCoverage(t, p, len(s), len(tg))
		if p.Cost() != cost {
			t.Errorf("%q: Path.Cost() = %d, Align cost = %d", pr[0], p.Cost(), cost)
		}
	}
}

func TestAlign_Concurrent(t *testing.T) {
	t.Parallel()

	a := align.New()
	source := strings.Fields("ich trinke um 6:30 Uhr einen Kaffee Desaster")
	target := strings.Fields("Ich trinke um halb 7 ein Kaffee-Desaster.")
	want := a.EditPath(source, target)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := a.EditPath(source, target); !slices.Equal(got, want) {
				t.Errorf("concurrent EditPath = %v, want %v", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestAlign_NormalizesEachTokenOnce(t *testing.T) {
	t.Parallel()

	var source, target []string
	for i := range 60 {
		source = append(source, fmt.Sprintf("wort%d,", i))
		target = append(target, fmt.Sprintf("Wort%d", i+3))
	}
	distinct := make(map[string]struct{})
	for _, w := range append(slices.Clone(source), target...) {
		distinct[w] = struct{}{}
	}

	calls := 0
	counting := func(w string) string {
		calls++
		return align.Normalize(w)
	}
	a := align.New(align.WithNormalizer(counting), align.WithMatchers(align.ExactMatcher()))
	if _, cost := a.Align(source, target); cost != 6 {
		t.Errorf("cost = %d, want 6", cost)
	}
	if calls != len(distinct) {
		t.Errorf("normalize called %d times, want %d (once per distinct token)", calls, len(distinct))
	}

	calls = 0
	align.New(align.WithNormalizer(counting)).EditPath(source, target)
	if limit := len(source) * len(target); calls >= limit {
		t.Errorf("standard set called normalize %d times, want fewer than %d", calls, limit)
	}
}

func TestWithMatchers_AppendsInsertAndRemove(t *testing.T) {
	t.Parallel()

	a := align.New(align.WithMatchers(align.ExactMatcher()))
	pairs := [][2]string{
		{"a b", "a c"},
		{"", "x y"},
		{"x y", ""},
		{"völlig anders", "gar nicht gleich"},
	}
	for _, pr := range pairs {
		s, tg := strings.Fields(pr[0]), strings.Fields(pr[1])
		p, cost := a.Align(s, tg)
		assertCoverage(t, p, len(s), len(tg))
		if p.Cost() != cost {
			t.Errorf("%q: Path.Cost() = %d, Align cost = %d", pr[0], p.Cost(), cost)
		}
	}

	ms := a.Matchers()
	if len(ms) != 3 || ms[1].Name() != align.RuleInsert || ms[2].Name() != align.RuleRemove {
		t.Errorf("matchers = %v, want exact followed by insert and remove", ms)
	}
}

func TestPath_TrimTrailingInserts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   align.Path
		want align.Path
	}{
		{"empty", align.Path{}, align.Path{}},
		{"no inserts", align.Path{match11(0, 0)}, align.Path{match11(0, 0)}},
		{
			"trailing inserts",
			align.Path{match11(0, 0), align.Insert(1, 1), align.Insert(1, 2)},
			align.Path{match11(0, 0)},
		},
		{
			"inner insert kept",
			align.Path{match11(0, 0), align.Insert(1, 1), match11(1, 2), align.Insert(2, 3)},
			align.Path{match11(0, 0), align.Insert(1, 1), match11(1, 2)},
		},
		{
			"never empty",
			align.Path{align.Insert(0, 0), align.Insert(0, 1)},
			align.Path{align.Insert(0, 0)},
		},
	}
	for _, tt := range tests {
		if got := tt.in.TrimTrailingInserts(); !slices.Equal(got, tt.want) {
			t.Errorf("%s: TrimTrailingInserts() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewPhraseTable_RejectsEmptySide(t *testing.T) {
	t.Parallel()

	_, err := align.NewPhraseTable(
		align.Phrase{Source: []string{"a"}, Target: []string{"b"}},
		align.Phrase{Source: nil, Target: []string{"b"}},
	)
	if err == nil {
		t.Fatal("expected error for empty phrase side, got nil")
	}

	table, err := align.WithSeed(align.Phrase{Source: []string{"usw."}, Target: []string{"und", "so", "weiter"}})
	if err != nil {
		t.Fatalf("WithSeed: %v", err)
	}
	if table.Len() != align.DefaultPhrases().Len()+1 {
		t.Errorf("WithSeed len = %d, want %d", table.Len(), align.DefaultPhrases().Len()+1)
	}
}

func TestPath_Tally(t *testing.T) {
	t.Parallel()

	p := align.Path{match11(0, 0), align.Remove(1, 1), align.Insert(2, 1), match11(2, 2)}
	got := p.Tally()
	if n := got[align.SpanKey{Kind: align.KindMatch, Rule: align.RuleExact}]; n != 2 {
		t.Errorf("exact matches = %d, want 2", n)
	}
	if n := got[align.SpanKey{Kind: align.KindRemove, Rule: align.RuleRemove}]; n != 1 {
		t.Errorf("removes = %d, want 1", n)
	}
	if len(got) != 3 {
		t.Errorf("len(Tally()) = %d, want 3", len(got))
	}
}
