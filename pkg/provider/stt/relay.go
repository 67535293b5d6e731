package stt

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// Relay is a text-only SessionHandle fed by transcripts pushed from outside,
// e.g. by a websocket client whose browser runs the recognizer.
//
// Partials are lossy: when the buffer is full the oldest pending partial is
// dropped, since a newer snapshot supersedes it. Finals are never dropped;
// Push blocks until there is room, the context ends or the relay closes.
type Relay struct {
	partials chan Transcript
	finals   chan Transcript
	done     chan struct{}

	seq atomic.Uint64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	keywords  []KeywordBoost
}

// NewRelay returns an open relay whose channels buffer up to buffer values
// each. A buffer below 1 is raised to 1.
func NewRelay(buffer int) *Relay {
	buffer = max(buffer, 1)
	return &Relay{
		partials: make(chan Transcript, buffer),
		finals:   make(chan Transcript, buffer),
		done:     make(chan struct{}),
	}
}

// Push delivers t on Finals when t.IsFinal, on Partials otherwise. Each
// pushed transcript gets the next Seq, overwriting any value set by the
// caller.
func (r *Relay) Push(ctx context.Context, t Transcript) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	t.Seq = r.seq.Add(1)
	if !t.IsFinal {
		r.pushPartial(t)
		return nil
	}
	select {
	case r.finals <- t:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) pushPartial(t Transcript) {
	for {
		select {
		case r.partials <- t:
			return
		default:
		}
		select {
		case <-r.partials:
		default:
		}
	}
}

// SendAudio implements SessionHandle. A relay carries text only.
func (r *Relay) SendAudio([]byte) error { return ErrNotSupported }

// Partials implements SessionHandle.
func (r *Relay) Partials() <-chan Transcript { return r.partials }

// Finals implements SessionHandle.
func (r *Relay) Finals() <-chan Transcript { return r.finals }

// SetKeywords records keywords so the pushing side can forward them to its
// recognizer.
func (r *Relay) SetKeywords(keywords []KeywordBoost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.keywords = slices.Clone(keywords)
	return nil
}

// Keywords returns the hints last set with SetKeywords.
func (r *Relay) Keywords() []KeywordBoost {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.keywords)
}

// Close implements SessionHandle.
func (r *Relay) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.mu.Lock()
		defer r.mu.Unlock()
		r.closed = true
		close(r.partials)
		close(r.finals)
	})
	return nil
}

var _ SessionHandle = (*Relay)(nil)

// RelayProvider opens a new Relay per stream.
type RelayProvider struct {
	// Buffer is the per-channel buffer of each relay.
	Buffer int
}

// StartStream returns a fresh *Relay preloaded with cfg.Keywords.
func (p RelayProvider) StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := NewRelay(p.Buffer)
	r.keywords = slices.Clone(cfg.Keywords)
	return r, nil
}

var _ Provider = RelayProvider{}
