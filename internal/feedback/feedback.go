// Package feedback turns an alignment path into what the learner sees: one
// item per span marked as correct, missing or superfluous, a score, and
// optional near-miss hints.
package feedback

import (
	"strings"

	"github.com/MrWong99/diktat/internal/align"
	"github.com/MrWong99/diktat/internal/feedback/phonetic"
)

// Status classifies an [Item].
type Status string

const (
	// StatusCorrect marks reference words the learner got right.
	StatusCorrect Status = "correct"
	// StatusAdded marks a reference word missing from the transcript; the
	// learner has to add it.
	StatusAdded Status = "added"
	// StatusRemoved marks a transcript word with no counterpart in the
	// reference; the learner has to remove it.
	StatusRemoved Status = "removed"
)

// Item is one rendered span.
type Item struct {
	Status Status      `json:"status"`
	Text   string      `json:"text"`
	Rule   align.Rule  `json:"rule"`
	Source align.Range `json:"source"`
	Target align.Range `json:"target"`
	Hint   *Hint       `json:"hint,omitempty"`
}

// Hint suggests that a removed word was a near miss of an adjacent missing
// reference word. It never changes the alignment.
type Hint struct {
	Expected   string  `json:"expected"`
	Similarity float64 `json:"similarity"`
	Phonetic   bool    `json:"phonetic"`
}

// Score summarises a feedback.
type Score struct {
	// Correct counts reference words covered by match spans.
	Correct int `json:"correct"`
	// Added counts reference words the learner missed.
	Added int `json:"added"`
	// Removed counts superfluous transcript words.
	Removed int `json:"removed"`
	// Cost is the number of insert and remove spans.
	Cost int `json:"cost"`
	// Accuracy is Correct divided by the reference words the path covers,
	// or 1 when it covers none.
	Accuracy float64 `json:"accuracy"`
}

// Feedback is the rendered result of one alignment.
type Feedback struct {
	Items []Item `json:"items"`
	Score Score  `json:"score"`

	// Empty reports that the transcript had no words; renderers show
	// nothing rather than a list of missing words.
	Empty bool `json:"empty"`
}

// Options controls [Build].
type Options struct {
	// Trim drops trailing missing words, for a learner who is still
	// speaking.
	Trim bool

	// Hints enables near-miss hints when non-nil.
	Hints *phonetic.Matcher

	// Normalize prepares tokens for hint comparison. Nil means
	// [align.Normalize].
	Normalize align.NormalizeFunc
}

// Build renders path, which must align source with target.
func Build(path align.Path, source, target []string, opts Options) Feedback {
	if opts.Trim {
		path = path.TrimTrailingInserts()
	}
	fb := Feedback{Items: make([]Item, 0, len(path)), Empty: len(source) == 0}

	covered := 0
	for _, sp := range path {
		it := Item{Rule: sp.Rule, Source: sp.Source, Target: sp.Target}
		switch sp.Kind {
		case align.KindInsert:
			it.Status = StatusAdded
			it.Text = target[sp.Target.Start]
			fb.Score.Added++
		case align.KindRemove:
			it.Status = StatusRemoved
			it.Text = source[sp.Source.Start]
			fb.Score.Removed++
		default:
			it.Status = StatusCorrect
			it.Text = strings.Join(target[sp.Target.Start:sp.Target.End], " ")
			fb.Score.Correct += sp.Target.Len()
		}
		covered = max(covered, sp.Target.End)
		fb.Items = append(fb.Items, it)
	}
	fb.Score.Cost = path.Cost()
	fb.Score.Accuracy = 1
	if covered > 0 {
		fb.Score.Accuracy = float64(fb.Score.Correct) / float64(covered)
	}

	if opts.Hints != nil {
		normalize := opts.Normalize
		if normalize == nil {
			normalize = align.Normalize
		}
		attachHints(fb.Items, opts.Hints, normalize)
	}
	return fb
}

// attachHints pairs every removed item with the closest added item of the
// same edit run, i.e. the maximal stretch of added and removed items around
// it. Each added item is claimed at most once.
func attachHints(items []Item, m *phonetic.Matcher, normalize align.NormalizeFunc) {
	for start := 0; start < len(items); {
		if items[start].Status == StatusCorrect {
			start++
			continue
		}
		end := start
		for end < len(items) && items[end].Status != StatusCorrect {
			end++
		}
		hintRun(items[start:end], m, normalize)
		start = end
	}
}

func hintRun(run []Item, m *phonetic.Matcher, normalize align.NormalizeFunc) {
	var added []int
	for i, it := range run {
		if it.Status == StatusAdded {
			added = append(added, i)
		}
	}
	for i := range run {
		if run[i].Status != StatusRemoved || len(added) == 0 {
			continue
		}
		cands := make([]string, len(added))
		for k, a := range added {
			cands[k] = normalize(run[a].Text)
		}
		k, r, ok := m.Closest(normalize(run[i].Text), cands)
		if !ok {
			continue
		}
		run[i].Hint = &Hint{Expected: run[added[k]].Text, Similarity: r.Score, Phonetic: r.Phonetic}
		added = append(added[:k], added[k+1:]...)
	}
}
