// Package server exposes the dictation checker over HTTP.
//
// Routes:
//
//	POST /api/v1/align            align one transcript with one sentence
//	GET  /api/v1/lessons/{id}     a lesson of the configured document (?url= overrides)
//	GET  /api/v1/attempts         recent attempts (?limit=, default 20)
//	GET  /api/v1/dictation        websocket for live dictation feedback
//	GET  /healthz, /readyz        liveness and readiness
//	GET  /metrics                 Prometheus scrape endpoint
//
// Every route runs behind [observe.Middleware].
package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/MrWong99/diktat/internal/attempt"
	"github.com/MrWong99/diktat/internal/dictation"
	"github.com/MrWong99/diktat/internal/health"
	"github.com/MrWong99/diktat/internal/lesson"
	"github.com/MrWong99/diktat/internal/observe"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Settings is the hot-reloadable part of the server configuration.
type Settings struct {
	Evaluator          *dictation.Evaluator
	TrimWhileListening bool
}

// Option configures a [Server].
type Option func(*Server)

// WithLessons serves lessons through f. documentURL is used when a request
// carries no url parameter. A url parameter must name documentURL or one of
// allowed; any other document is refused.
func WithLessons(f *lesson.Fetcher, documentURL string, allowed ...string) Option {
	return func(s *Server) {
		s.fetcher = f
		s.documentURL = documentURL
		s.documents = make(map[string]struct{}, len(allowed)+1)
		for _, u := range append([]string{documentURL}, allowed...) {
			if u != "" {
				s.documents[u] = struct{}{}
			}
		}
	}
}

// WithAttemptStore persists final dictation transcripts and serves them on
// /api/v1/attempts. backend labels the store in metrics.
func WithAttemptStore(store attempt.Store, backend string) Option {
	return func(s *Server) {
		s.store = store
		s.backend = backend
	}
}

// WithHealth registers the liveness and readiness routes of h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithOriginPatterns allows browser origins matching patterns to open the
// dictation websocket. The server's own host is always allowed.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, patterns...) }
}

// WithRelayBuffer sets how many transcripts of one dictation may queue
// before the oldest partial is dropped. Default: 16.
func WithRelayBuffer(n int) Option {
	return func(s *Server) { s.relayBuffer = n }
}

// Server routes HTTP requests to the checker. It is safe for concurrent use;
// [Server.Reload] swaps the settings without interrupting running requests.
type Server struct {
	settings atomic.Pointer[Settings]

	fetcher        *lesson.Fetcher
	documentURL    string
	documents      map[string]struct{}
	store          attempt.Store
	backend        string
	health         *health.Handler
	metricsHandler http.Handler
	metrics        *observe.Metrics
	origins        []string
	relayBuffer    int

	handler http.Handler
}

// New returns a server using settings until the next [Server.Reload].
func New(settings Settings, opts ...Option) *Server {
	s := &Server{relayBuffer: 16}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.Reload(settings)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/align", s.handleAlign)
	mux.HandleFunc("GET /api/v1/lessons/{id}", s.handleLesson)
	mux.HandleFunc("GET /api/v1/attempts", s.handleAttempts)
	mux.HandleFunc("GET /api/v1/dictation", s.handleDictation)
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	s.handler = observe.Middleware(s.metrics)(mux)
	return s
}

// Reload replaces the settings used by subsequent requests. A nil
// evaluator is replaced by a default one.
func (s *Server) Reload(settings Settings) {
	if settings.Evaluator == nil {
		settings.Evaluator = dictation.NewEvaluator(nil, dictation.WithEvaluatorMetrics(s.metrics))
	}
	s.settings.Store(&settings)
}

// Settings returns the current settings.
func (s *Server) Settings() Settings { return *s.settings.Load() }

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
