package dictation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/diktat/internal/attempt"
	"github.com/MrWong99/diktat/internal/feedback"
	"github.com/MrWong99/diktat/internal/lesson"
	"github.com/MrWong99/diktat/internal/observe"
	"github.com/MrWong99/diktat/pkg/provider/stt"
)

// defaultKeywordBoost is the boost given to reference words as recognition
// hints.
const defaultKeywordBoost = 2.0

// Snapshot is the feedback for one transcript of the learner.
type Snapshot struct {
	Transcript string            `json:"transcript"`
	Final      bool              `json:"final"`
	Feedback   feedback.Feedback `json:"feedback"`
}

// Option configures a [Session].
type Option func(*Session)

// WithEvaluator sets the evaluator. Default: [NewEvaluator] with a default
// aligner.
func WithEvaluator(e *Evaluator) Option {
	return func(s *Session) { s.eval = e }
}

// WithTrimWhileListening controls whether partial transcripts are trimmed
// so unspoken reference words are not flagged. Default: true.
func WithTrimWhileListening(trim bool) Option {
	return func(s *Session) { s.trim = trim }
}

// WithStore persists every non-empty final transcript to store. backend
// labels the store in metrics.
func WithStore(store attempt.Store, backend string) Option {
	return func(s *Session) {
		s.store = store
		s.backend = backend
	}
}

// WithLesson records which lesson sentence is being dictated.
func WithLesson(id string, sentence int) Option {
	return func(s *Session) {
		s.lessonID = id
		s.sentence = sentence
	}
}

// WithKeywordBoost sets the boost of the reference words passed to the
// recognizer. Default: 2.0.
func WithKeywordBoost(boost float64) Option {
	return func(s *Session) { s.boost = boost }
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithBuffer sets the capacity of the snapshot channel. Default: 8.
func WithBuffer(n int) Option {
	return func(s *Session) { s.buffer = max(n, 0) }
}

// Session checks the transcripts of one recognition stream against one
// reference sentence.
//
// Partial transcripts are evaluated with trimming (when enabled), final ones
// without. Every evaluation is emitted on [Session.Snapshots].
type Session struct {
	handle    stt.SessionHandle
	reference string

	eval     *Evaluator
	trim     bool
	store    attempt.Store
	backend  string
	lessonID string
	sentence int
	boost    float64
	metrics  *observe.Metrics
	buffer   int

	out       chan Snapshot
	closeOnce sync.Once
	closeErr  error
}

// New wraps an open recognition session. The reference words are handed to
// handle as keyword hints; recognizers that do not support hints are fine.
// The session takes ownership of handle and closes it in [Session.Close].
func New(handle stt.SessionHandle, reference string, opts ...Option) (*Session, error) {
	s := newSession(handle, reference, opts)
	err := handle.SetKeywords(stt.KeywordsFor(lesson.Words(reference), s.boost))
	if err != nil && !errors.Is(err, stt.ErrNotSupported) {
		return nil, fmt.Errorf("dictation: set keywords: %w", err)
	}
	return s, nil
}

// Start opens a recognition stream on p with the reference words as keyword
// hints and wraps it in a Session.
func Start(ctx context.Context, p stt.Provider, cfg stt.StreamConfig, reference string, opts ...Option) (*Session, error) {
	s := newSession(nil, reference, opts)
	cfg.Keywords = stt.KeywordsFor(lesson.Words(reference), s.boost)
	handle, err := p.StartStream(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dictation: start stream: %w", err)
	}
	s.handle = handle
	return s, nil
}

func newSession(handle stt.SessionHandle, reference string, opts []Option) *Session {
	s := &Session{
		handle:    handle,
		reference: reference,
		trim:      true,
		boost:     defaultKeywordBoost,
		buffer:    8,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.eval == nil {
		s.eval = NewEvaluator(nil, WithEvaluatorMetrics(s.metrics))
	}
	s.out = make(chan Snapshot, s.buffer)
	return s
}

// Reference returns the sentence being dictated.
func (s *Session) Reference() string { return s.reference }

// Snapshots returns the channel of evaluations. It is closed when
// [Session.Run] returns.
func (s *Session) Snapshots() <-chan Snapshot { return s.out }

// Run consumes transcripts until the recognizer closes both channels or ctx
// is cancelled. It must be called exactly once. A cancelled context is
// returned as its error; a drained stream returns nil.
//
// Queued finals are emitted before a partial. A numbered partial older than
// the last emitted final is dropped, since that final supersedes it.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.out)

	s.metrics.ActiveDictations.Add(ctx, 1)
	defer s.metrics.ActiveDictations.Add(context.WithoutCancel(ctx), -1)

	var lastFinal uint64
	partials, finals := s.handle.Partials(), s.handle.Finals()
	final := func(t stt.Transcript) error {
		lastFinal = max(lastFinal, t.Seq)
		return s.emit(ctx, t.Text, true)
	}
	for partials != nil || finals != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			if err := drain(&finals, final); err != nil {
				return err
			}
			if t.Seq != 0 && t.Seq < lastFinal {
				continue
			}
			if err := s.emit(ctx, t.Text, false); err != nil {
				return err
			}
		case t, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			if err := final(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// drain passes every transcript already queued on *ch to fn without
// blocking. A closed channel is set to nil.
func drain(ch *<-chan stt.Transcript, fn func(stt.Transcript) error) error {
	for *ch != nil {
		select {
		case t, ok := <-*ch:
			if !ok {
				*ch = nil
				return nil
			}
			if err := fn(t); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (s *Session) emit(ctx context.Context, transcript string, final bool) error {
	res := s.eval.Evaluate(ctx, OriginDictation, transcript, s.reference, s.trim && !final)
	if final {
		s.persist(ctx, transcript, res.Feedback)
	}
	select {
	case s.out <- Snapshot{Transcript: transcript, Final: final, Feedback: res.Feedback}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) persist(ctx context.Context, transcript string, fb feedback.Feedback) {
	if s.store == nil || fb.Empty {
		return
	}
	rec := attempt.NewRecord(s.lessonID, s.sentence, s.reference, transcript, fb.Score)
	status := "ok"
	if err := s.store.Save(ctx, rec); err != nil {
		status = "error"
		observe.Logger(ctx).Warn("failed to save attempt", "backend", s.backend, "err", err)
	}
	s.metrics.RecordAttemptSaved(ctx, s.backend, status)
}

// Close closes the recognition session. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.handle.Close()
	})
	return s.closeErr
}
