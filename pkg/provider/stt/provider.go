// Package stt defines the interface through which the dictation trainer
// receives speech transcripts.
//
// Speech recognition itself is not part of this module: the learner's browser
// (or any other recognizer) produces the text. The central abstraction is
// SessionHandle, which emits two streams of Transcript values: low-latency
// partials while the learner is still speaking and authoritative finals once
// the recognizer has committed to a result. Relay is a SessionHandle fed by
// externally pushed snapshots; Provider lets a future server-side recognizer
// plug in behind the same contract.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// DefaultLanguage is the BCP-47 tag used when StreamConfig.Language is empty.
const DefaultLanguage = "de-DE"

// ErrNotSupported is returned by optional SessionHandle methods the
// implementation does not provide.
var ErrNotSupported = errors.New("stt: operation not supported")

// ErrClosed is returned when a session is used after Close.
var ErrClosed = errors.New("stt: session closed")

// StreamConfig describes the audio format and recognition hints for a new
// session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Zero for text-only sessions.
	SampleRate int

	// Channels is the number of audio channels. Zero for text-only sessions.
	Channels int

	// Language is the BCP-47 language tag for recognition. Empty means
	// DefaultLanguage.
	Language string

	// Keywords are vocabulary hints, typically the tokens of the reference
	// sentence the learner is dictating.
	Keywords []KeywordBoost
}

// Lang returns the configured language or DefaultLanguage.
func (c StreamConfig) Lang() string {
	if c.Language == "" {
		return DefaultLanguage
	}
	return c.Language
}

// SessionHandle represents an open transcription session.
//
// Callers must call Close when the session is no longer needed.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio. Text-only sessions return
	// ErrNotSupported.
	SendAudio(chunk []byte) error

	// Partials emits interim transcripts. The channel is closed when the
	// session ends.
	Partials() <-chan Transcript

	// Finals emits committed transcripts. The channel is closed when the
	// session ends.
	Finals() <-chan Transcript

	// SetKeywords replaces the active keyword hints without restarting the
	// session.
	SetKeywords(keywords []KeywordBoost) error

	// Close terminates the session. After Close returns, the Partials and
	// Finals channels are closed. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Provider opens transcription sessions.
type Provider interface {
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}

// KeywordsFor turns reference tokens into keyword hints with the given boost,
// dropping duplicates while keeping first-seen order.
func KeywordsFor(tokens []string, boost float64) []KeywordBoost {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]KeywordBoost, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, KeywordBoost{Keyword: tok, Boost: boost})
	}
	return out
}
