package align

import (
	"fmt"
	"math"
)

// unreachable marks a cell no proposal could reach.
const unreachable = math.MaxInt / 2

// choice records which proposal produced a cell's minimum.
type choice struct {
	rule     Rule
	src, tgt int
	cost     int
}

// table is the transient cost/choice pair of one alignment call.
type table struct {
	n, m   int
	cost   [][]int
	choice [][]choice
}

func newTable(n, m int) *table {
	t := &table{n: n, m: m, cost: make([][]int, n+1), choice: make([][]choice, n+1)}
	costs := make([]int, (n+1)*(m+1))
	choices := make([]choice, (n+1)*(m+1))
	for i := range t.cost {
		t.cost[i] = costs[i*(m+1) : (i+1)*(m+1)]
		t.choice[i] = choices[i*(m+1) : (i+1)*(m+1)]
	}
	return t
}

// fill computes every cell. Row 0 and column 0 are pure insert and remove
// runs; the remaining cells are filled row-major, so every predecessor a
// proposal can point at is already final.
func (t *table) fill(source, target []string, normalize NormalizeFunc, matchers []Matcher) {
	for i := 1; i <= t.n; i++ {
		t.cost[i][0] = i
		t.choice[i][0] = choice{rule: RuleRemove, src: 1, cost: 1}
	}
	for j := 1; j <= t.m; j++ {
		t.cost[0][j] = j
		t.choice[0][j] = choice{rule: RuleInsert, tgt: 1, cost: 1}
	}

	c := &Cell{
		Source:    source,
		Target:    target,
		Normalize: normalize,
		keys:      make(map[string]string, len(source)+len(target)),
	}
	for _, w := range source {
		c.Key(w)
	}
	for _, w := range target {
		c.Key(w)
	}
	for i := 1; i <= t.n; i++ {
		for j := 1; j <= t.m; j++ {
			c.I, c.J = i, j
			best := unreachable
			var bestChoice choice
			for _, m := range matchers {
				p, ok := m.Propose(c)
				if !ok || !p.valid(i, j) {
					continue
				}
				prev := t.cost[i-p.Source][j-p.Target]
				if prev >= unreachable {
					continue
				}
				// Strictly lower only: on a tie the earlier matcher keeps the cell.
				if total := prev + p.Cost; total < best {
					best = total
					bestChoice = choice{rule: m.Name(), src: p.Source, tgt: p.Target, cost: p.Cost}
				}
			}
			t.cost[i][j] = best
			t.choice[i][j] = bestChoice
		}
	}
}

// valid reports whether p points at an existing, strictly smaller cell.
func (p Proposal) valid(i, j int) bool {
	return p.Source >= 0 && p.Target >= 0 &&
		p.Source+p.Target > 0 &&
		p.Source <= i && p.Target <= j &&
		p.Cost >= 0
}

// walk follows the choices from (n, m) back to (0, 0) and returns the spans
// in forward order.
func (t *table) walk() Path {
	var rev Path
	i, j := t.n, t.m
	for i > 0 || j > 0 {
		ch := t.choice[i][j]
		if ch.src+ch.tgt == 0 {
			panic(fmt.Sprintf("align: no matcher applies at cell (%d, %d)", i, j))
		}
		pi, pj := i-ch.src, j-ch.tgt
		rev = append(rev, ch.span(pi, pj, i, j))
		i, j = pi, pj
	}
	path := make(Path, len(rev))
	for k, s := range rev {
		path[len(rev)-1-k] = s
	}
	return path
}

// span converts a choice covering source [pi, i) and target [pj, j).
func (ch choice) span(pi, pj, i, j int) Span {
	switch {
	case ch.cost > 0 && ch.src == 0 && ch.tgt == 1:
		return Span{Kind: KindInsert, Source: Range{pi, i}, Target: Range{pj, j}, Rule: ch.rule}
	case ch.cost > 0 && ch.src == 1 && ch.tgt == 0:
		return Span{Kind: KindRemove, Source: Range{pi, i}, Target: Range{pj, j}, Rule: ch.rule}
	default:
		return Match(Range{pi, i}, Range{pj, j}, ch.rule)
	}
}
