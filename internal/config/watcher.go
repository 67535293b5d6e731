package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fileState identifies one version of the config file.
type fileState struct {
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
}

// sameStat reports whether info still describes s without reading the file.
func (s fileState) sameStat(info os.FileInfo) bool {
	return info.ModTime().Equal(s.modTime) && info.Size() == s.size
}

// Watcher polls a config file and hands every new valid version to a
// callback. A file that was touched but not edited is not reported; a file
// that fails to parse is logged once per distinct content and otherwise
// ignored, so the service keeps running on the last valid config.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	seen    fileState // last version read, valid or not
	loaded  fileState // version current was decoded from

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and returns a watcher for it. The
// initial config must be valid. Polling starts with [Watcher.Run].
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.seen, w.loaded = cfg, state, state
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends a running [Watcher.Run]. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Run polls the config file until ctx is done or Stop is called. It always
// returns nil so it can run in an errgroup without tearing it down.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll reloads the file when its stat changed and reports a new valid
// version to onChange.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return
	}
	w.mu.Lock()
	unchanged := w.seen.sameStat(info)
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, state, err := w.read()

	w.mu.Lock()
	if state.sum == w.seen.sum {
		w.seen = state
		w.mu.Unlock()
		return
	}
	w.seen = state
	if err != nil {
		w.mu.Unlock()
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}
	if state.sum == w.loaded.sum {
		// Reverted to the active version after an invalid edit.
		w.loaded = state
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current, w.loaded = cfg, state
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// read loads the file. The returned state is filled in whenever the file
// could be read, even when decoding or validation failed.
func (w *Watcher) read() (*Config, fileState, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	state := fileState{modTime: info.ModTime(), size: info.Size(), sum: sha256.Sum256(data)}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, state, err
	}
	return cfg, state, nil
}
