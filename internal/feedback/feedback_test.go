package feedback_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/diktat/internal/align"
	"github.com/MrWong99/diktat/internal/feedback"
	"github.com/MrWong99/diktat/internal/feedback/phonetic"
)

func build(transcript, sentence string, opts feedback.Options) feedback.Feedback {
	source, target := strings.Fields(transcript), strings.Fields(sentence)
	return feedback.Build(align.New().EditPath(source, target), source, target, opts)
}

func statuses(fb feedback.Feedback) string {
	parts := make([]string, len(fb.Items))
	for i, it := range fb.Items {
		parts[i] = string(it.Status) + ":" + it.Text
	}
	return strings.Join(parts, " ")
}

func TestBuild_Statuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		transcript string
		sentence   string
		want       string
	}{
		{
			name:       "all correct",
			transcript: "es ist ein schöner Tag",
			sentence:   "Es ist ein schöner Tag.",
			want:       "correct:Es correct:ist correct:ein correct:schöner correct:Tag.",
		},
		{
			name:       "missing word",
			transcript: "es ein",
			sentence:   "Es ist ein",
			want:       "correct:Es added:ist correct:ein",
		},
		{
			name:       "extra word",
			transcript: "es ist nicht ein",
			sentence:   "Es ist ein",
			want:       "correct:Es correct:ist removed:nicht correct:ein",
		},
		{
			name:       "merge shows reference spelling",
			transcript: "ein Kaffee Desaster",
			sentence:   "ein Kaffee-Desaster",
			want:       "correct:ein correct:Kaffee-Desaster",
		},
		{
			name:       "clock time",
			transcript: "um 6:30 Uhr",
			sentence:   "um halb sieben",
			want:       "correct:um correct:halb sieben",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := statuses(build(tt.transcript, tt.sentence, feedback.Options{})); got != tt.want {
				t.Errorf("items = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild_Score(t *testing.T) {
	t.Parallel()

	fb := build("Es ist ein Kafee", "Es ist ein Kaffee", feedback.Options{})
	want := feedback.Score{Correct: 3, Added: 1, Removed: 1, Cost: 2, Accuracy: 0.75}
	if fb.Score != want {
		t.Errorf("Score = %+v, want %+v", fb.Score, want)
	}

	fb = build("ein Kaffee Desaster", "ein Kaffee-Desaster", feedback.Options{})
	if fb.Score.Correct != 2 || fb.Score.Accuracy != 1 {
		t.Errorf("merge Score = %+v, want 2 correct and accuracy 1", fb.Score)
	}
}

func TestBuild_Trim(t *testing.T) {
	t.Parallel()

	untrimmed := build("Es ist", "Es ist ein Kaffee", feedback.Options{})
	if untrimmed.Score.Added != 2 || untrimmed.Score.Accuracy != 0.5 {
		t.Errorf("untrimmed Score = %+v", untrimmed.Score)
	}

	trimmed := build("Es ist", "Es ist ein Kaffee", feedback.Options{Trim: true})
	if got := statuses(trimmed); got != "correct:Es correct:ist" {
		t.Errorf("trimmed items = %q", got)
	}
	if trimmed.Score.Added != 0 || trimmed.Score.Accuracy != 1 {
		t.Errorf("trimmed Score = %+v, want no added words and accuracy 1", trimmed.Score)
	}
}

func TestBuild_EmptyTranscript(t *testing.T) {
	t.Parallel()

	fb := build("", "Es ist", feedback.Options{Trim: true})
	if !fb.Empty {
		t.Fatal("Empty = false for empty transcript")
	}
	if got := feedback.HTML(fb); got != "<p></p>" {
		t.Errorf("HTML = %q, want empty paragraph", got)
	}
	if got := feedback.Text(fb, nil); got != "" {
		t.Errorf("Text = %q, want empty", got)
	}
}

func TestBuild_Hints(t *testing.T) {
	t.Parallel()

	fb := build("Es ist ein Kafee", "Es ist ein Kaffee", feedback.Options{Hints: phonetic.New()})

	var hinted *feedback.Item
	for i := range fb.Items {
		if fb.Items[i].Hint != nil {
			if hinted != nil {
				t.Fatalf("more than one hint: %+v", fb.Items)
			}
			hinted = &fb.Items[i]
		}
	}
	if hinted == nil {
		t.Fatalf("no hint attached: %+v", fb.Items)
	}
	if hinted.Status != feedback.StatusRemoved || hinted.Text != "Kafee" || hinted.Hint.Expected != "Kaffee" {
		t.Errorf("hint on %+v, want removed Kafee → Kaffee", *hinted)
	}

	// Hints never change the alignment.
	plain := build("Es ist ein Kafee", "Es ist ein Kaffee", feedback.Options{})
	if statuses(plain) != statuses(fb) || plain.Score != fb.Score {
		t.Error("hints changed the items or the score")
	}
}

func TestBuild_NoHintForUnrelatedWords(t *testing.T) {
	t.Parallel()

	fb := build("Es ist ein Hund", "Es ist ein Zebra", feedback.Options{Hints: phonetic.New()})
	for _, it := range fb.Items {
		if it.Hint != nil {
			t.Errorf("unexpected hint on %+v", it)
		}
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	fb := build("Es ist nicht Kafee", "Es ist Kaffee", feedback.Options{})
	if got, want := feedback.Text(fb, nil), "Es ist [-nicht] [-Kafee] [+Kaffee]"; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
	upper := func(text string, s feedback.Status) string {
		if s == feedback.StatusCorrect {
			return text
		}
		return strings.ToUpper(text)
	}
	if got, want := feedback.Text(fb, upper), "Es ist NICHT KAFEE KAFFEE"; got != want {
		t.Errorf("Text(upper) = %q, want %q", got, want)
	}
	if got := feedback.ANSI("x", feedback.StatusAdded); !strings.Contains(got, "x") || got == "x" {
		t.Errorf("ANSI(added) = %q", got)
	}
}

func TestHTML(t *testing.T) {
	t.Parallel()

	fb := build("a <b>", "a c", feedback.Options{})
	want := `<ul>` +
		`<li class="transcript-element transcript-correct">a</li>` +
		`<li class="transcript-element transcript-remove">&lt;b&gt;</li>` +
		`<li class="transcript-element transcript-add">c</li>` +
		`</ul>`
	if got := feedback.HTML(fb); got != want {
		t.Errorf("HTML =\n%s\nwant\n%s", got, want)
	}
}
