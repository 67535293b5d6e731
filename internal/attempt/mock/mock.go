// Package mock provides an in-memory test double for [attempt.Store].
//
// The mock records every saved record and exposes exported fields that
// control what it returns. It is safe for concurrent use.
//
// Typical usage:
//
//	store := &mock.Store{}
//	// inject store into the system under test …
//	if got := len(store.Saved()); got != 1 {
//	    t.Errorf("expected 1 saved attempt, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/diktat/internal/attempt"
)

var _ attempt.Store = (*Store)(nil)

// Store is a configurable test double for [attempt.Store].
type Store struct {
	mu     sync.Mutex
	saved  []attempt.Record
	closed bool
	saveCh chan attempt.Record

	// SaveErr is returned by [Store.Save] when non-nil. Failed saves are not
	// recorded.
	SaveErr error

	// RecentErr is returned by [Store.Recent] when non-nil.
	RecentErr error

	// PingErr is returned by [Store.Ping].
	PingErr error
}

// Notify returns a channel receiving a copy of every successfully saved
// record. The channel is buffered with size; saves never block on it and
// drop the notification when it is full.
func (m *Store) Notify(size int) <-chan attempt.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCh = make(chan attempt.Record, size)
	return m.saveCh
}

// Save implements [attempt.Store].
func (m *Store) Save(_ context.Context, r attempt.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.saved = append(m.saved, r)
	if m.saveCh != nil {
		select {
		case m.saveCh <- r:
		default:
		}
	}
	return nil
}

// Recent implements [attempt.Store].
func (m *Store) Recent(_ context.Context, n int) ([]attempt.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	src := m.saved
	if n > 0 && len(src) > n {
		src = src[len(src)-n:]
	}
	out := make([]attempt.Record, len(src))
	copy(out, src)
	return out, nil
}

// Ping implements [attempt.Store].
func (m *Store) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

// Close implements [attempt.Store].
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Saved returns a copy of every recorded save.
func (m *Store) Saved() []attempt.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]attempt.Record, len(m.saved))
	copy(out, m.saved)
	return out
}

// Closed reports whether Close was called.
func (m *Store) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
