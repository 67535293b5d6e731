// Package dictation checks what a learner wrote or said against the
// reference sentence.
//
// An [Evaluator] is the stateless part: it aligns one transcript and renders
// the feedback. A [Session] drives an evaluator from a live speech
// recognition stream and persists the final attempt.
package dictation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/diktat/internal/align"
	"github.com/MrWong99/diktat/internal/feedback"
	"github.com/MrWong99/diktat/internal/feedback/phonetic"
	"github.com/MrWong99/diktat/internal/lesson"
	"github.com/MrWong99/diktat/internal/observe"
)

// Origins label alignments in metrics.
const (
	OriginHTTP      = "http"
	OriginDictation = "dictation"
	OriginCLI       = "cli"
)

// Result is the outcome of one evaluation.
type Result struct {
	Path     align.Path        `json:"spans"`
	Feedback feedback.Feedback `json:"feedback"`
}

// EvaluatorOption configures an [Evaluator].
type EvaluatorOption func(*Evaluator)

// WithHints enables near-miss hints.
func WithHints(m *phonetic.Matcher) EvaluatorOption {
	return func(e *Evaluator) { e.hints = m }
}

// WithEvaluatorMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithEvaluatorMetrics(m *observe.Metrics) EvaluatorOption {
	return func(e *Evaluator) { e.metrics = m }
}

// Evaluator aligns transcripts with reference sentences. It is immutable and
// safe for concurrent use; a configuration change builds a new one.
type Evaluator struct {
	aligner *align.Aligner
	hints   *phonetic.Matcher
	metrics *observe.Metrics
}

// NewEvaluator returns an evaluator using a. A nil a means [align.New] with
// default options.
func NewEvaluator(a *align.Aligner, opts ...EvaluatorOption) *Evaluator {
	if a == nil {
		a = align.New()
	}
	e := &Evaluator{aligner: a}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Aligner returns the underlying aligner.
func (e *Evaluator) Aligner() *align.Aligner { return e.aligner }

// Evaluate aligns transcript with reference. With trim set, reference words
// after the last attempted one are not reported as missing.
func (e *Evaluator) Evaluate(ctx context.Context, origin, transcript, reference string, trim bool) Result {
	source, target := lesson.Words(transcript), lesson.Words(reference)

	ctx, span := observe.StartSpan(ctx, "dictation.evaluate",
		trace.WithAttributes(
			attribute.String("origin", origin),
			attribute.Int("source.words", len(source)),
			attribute.Int("target.words", len(target)),
		),
	)
	defer span.End()

	start := time.Now()
	path, cost := e.aligner.Align(source, target)
	e.metrics.RecordAlignment(ctx, origin, time.Since(start))
	for k, n := range path.Tally() {
		e.metrics.RecordSpans(ctx, k.Kind.String(), string(k.Rule), int64(n))
	}
	span.SetAttributes(attribute.Int("cost", cost))

	fb := feedback.Build(path, source, target, feedback.Options{
		Trim:      trim,
		Hints:     e.hints,
		Normalize: e.aligner.Normalizer(),
	})
	if trim {
		path = path.TrimTrailingInserts()
	}
	return Result{Path: path, Feedback: fb}
}
