// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to verify that a dictation starts its stream with the reference
// sentence as keyword hints. Use Session to script the partial and final
// transcripts a learner produces.
//
// Example:
//
//	sess := mock.NewSession(4)
//	sess.Partial("es ist")
//	sess.Final("es ist ein schöner Tag")
//	sess.End()
//	p := &mock.Provider{Session: sess}
//	handle, _ := p.StartStream(ctx, cfg)
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/diktat/pkg/provider/stt"
)

// StartStreamCall records one StartStream invocation.
type StartStreamCall struct {
	Cfg stt.StreamConfig
}

// Provider hands out a scripted Session.
type Provider struct {
	mu sync.Mutex

	// Session is returned by StartStream. Nil means a fresh NewSession(16).
	Session stt.SessionHandle

	// StartStreamErr, if non-nil, fails every StartStream.
	StartStreamErr error

	// StartStreamCalls records every StartStream, failed ones included.
	StartStreamCalls []StartStreamCall
}

var _ stt.Provider = (*Provider)(nil)

// StartStream implements stt.Provider.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg.Keywords = slices.Clone(cfg.Keywords)
	p.StartStreamCalls = append(p.StartStreamCalls, StartStreamCall{Cfg: cfg})
	if p.StartStreamErr != nil {
		return nil, p.StartStreamErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Session == nil {
		return NewSession(16), nil
	}
	return p.Session, nil
}

// SetKeywordsCall records one SetKeywords invocation.
type SetKeywordsCall struct {
	Keywords []stt.KeywordBoost
}

// Session is a scripted stt.SessionHandle. Queue transcripts with Partial
// and Final, then call End as a recognizer does when the learner stops.
type Session struct {
	mu       sync.Mutex
	partials chan stt.Transcript
	finals   chan stt.Transcript

	// SetKeywordsErr, if non-nil, is returned by every SetKeywords call.
	SetKeywordsErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// SetKeywordsCalls records every SetKeywords call in order.
	SetKeywordsCalls []SetKeywordsCall

	// AudioBytes counts the bytes passed to SendAudio.
	AudioBytes int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

var _ stt.SessionHandle = (*Session)(nil)

// NewSession returns a Session whose channels each buffer size transcripts.
func NewSession(size int) *Session {
	return &Session{
		partials: make(chan stt.Transcript, size),
		finals:   make(chan stt.Transcript, size),
	}
}

// Partial queues an interim transcript. It blocks when the buffer is full.
func (s *Session) Partial(text string) {
	s.partials <- stt.Transcript{Text: text}
}

// Final queues a committed transcript. It blocks when the buffer is full.
func (s *Session) Final(text string) {
	s.finals <- stt.Transcript{Text: text, IsFinal: true}
}

// End closes both channels. Call it at most once.
func (s *Session) End() {
	close(s.partials)
	close(s.finals)
}

// SendAudio implements stt.SessionHandle.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AudioBytes += len(chunk)
	return nil
}

// Partials implements stt.SessionHandle.
func (s *Session) Partials() <-chan stt.Transcript { return s.partials }

// Finals implements stt.SessionHandle.
func (s *Session) Finals() <-chan stt.Transcript { return s.finals }

// SetKeywords implements stt.SessionHandle.
func (s *Session) SetKeywords(keywords []stt.KeywordBoost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetKeywordsCalls = append(s.SetKeywordsCalls, SetKeywordsCall{Keywords: slices.Clone(keywords)})
	return s.SetKeywordsErr
}

// Close implements stt.SessionHandle. The channels are left to End.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}
