// Package app wires the diktat subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and watches the config file, and Shutdown
// tears everything down in order.
//
// For testing, inject doubles via functional options (WithAttemptStore,
// WithMetrics, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/diktat/internal/align"
	"github.com/MrWong99/diktat/internal/attempt"
	"github.com/MrWong99/diktat/internal/attempt/postgres"
	"github.com/MrWong99/diktat/internal/config"
	"github.com/MrWong99/diktat/internal/dictation"
	"github.com/MrWong99/diktat/internal/feedback/phonetic"
	"github.com/MrWong99/diktat/internal/health"
	"github.com/MrWong99/diktat/internal/lesson"
	"github.com/MrWong99/diktat/internal/observe"
	"github.com/MrWong99/diktat/internal/server"
)

// shutdownTimeout bounds draining in-flight requests once Run's context is
// done.
const shutdownTimeout = 10 * time.Second

// App owns all subsystem lifetimes of the diktat service.
type App struct {
	cfg     *config.Config
	version string

	reg       *config.Registry
	level     *slog.LevelVar
	telemetry *observe.Providers
	metrics   *observe.Metrics
	fetcher   *lesson.Fetcher
	store     attempt.Store
	server    *server.Server

	watchPath string
	watchOpts []config.WatcherOption
	watcher   *config.Watcher

	// closers are called in order during Shutdown.
	closers []func(context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithAttemptStore injects an attempt store instead of creating one from
// config. The App does not close an injected store.
func WithAttemptStore(s attempt.Store) Option {
	return func(a *App) { a.store = s }
}

// WithRegistry sets the registry attempt stores are created from. Default:
// [DefaultRegistry].
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.reg = r }
}

// WithMetrics injects a metrics instance and skips the OpenTelemetry
// provider setup; /metrics is not served.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevel lets configuration reloads change the level of a logger built
// around lv.
func WithLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithConfigWatch watches the config file at path and applies hot-reloadable
// changes while Run is active.
func WithConfigWatch(path string, opts ...config.WatcherOption) Option {
	return func(a *App) {
		a.watchPath = path
		a.watchOpts = opts
	}
}

// WithVersion is reported by the health endpoints and the telemetry
// resource.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.reg == nil {
		a.reg = DefaultRegistry()
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
		a.level.Set(cfg.Server.LogLevel.Level())
	}

	// ── 1. Telemetry ─────────────────────────────────────────────────────
	if err := a.initTelemetry(ctx); err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}

	// ── 2. Attempt store ─────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		a.closeAll(ctx)
		return nil, fmt.Errorf("app: init attempt store: %w", err)
	}

	// ── 3. Evaluator ─────────────────────────────────────────────────────
	eval, err := NewEvaluator(cfg, a.metrics)
	if err != nil {
		a.closeAll(ctx)
		return nil, fmt.Errorf("app: init evaluator: %w", err)
	}

	// ── 4. Lessons ───────────────────────────────────────────────────────
	a.fetcher = NewFetcher(cfg.Lessons, a.metrics)

	// ── 5. Config watcher ────────────────────────────────────────────────
	if a.watchPath != "" {
		a.watcher, err = config.NewWatcher(a.watchPath, a.applyConfig, a.watchOpts...)
		if err != nil {
			a.closeAll(ctx)
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	// ── 6. HTTP server ───────────────────────────────────────────────────
	a.server = server.New(server.Settings{
		Evaluator:          eval,
		TrimWhileListening: cfg.Alignment.TrimWhileListening,
	}, a.serverOptions()...)

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initTelemetry(ctx context.Context) error {
	if a.metrics != nil {
		return nil
	}
	p, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    a.cfg.Telemetry.ServiceName,
		ServiceVersion: a.version,
	})
	if err != nil {
		return err
	}
	a.telemetry = p
	a.closers = append(a.closers, p.Shutdown)

	a.metrics, err = observe.NewMetrics(otel.GetMeterProvider())
	return err
}

// initStore creates the attempt store named by attempts.backend. An empty
// backend disables persistence.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil || a.cfg.Attempts.Backend == "" {
		return nil
	}
	store, err := a.reg.CreateAttemptStore(ctx, a.cfg.Attempts)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	slog.Info("attempt store ready", "backend", a.cfg.Attempts.Backend)
	return nil
}

func (a *App) serverOptions() []server.Option {
	var checkers []health.Checker
	opts := []server.Option{
		server.WithMetrics(a.metrics),
		server.WithLessons(a.fetcher, a.cfg.Lessons.DocumentURL, a.cfg.Lessons.Documents...),
		server.WithOriginPatterns(a.cfg.Server.AllowedOrigins...),
	}
	if a.store != nil {
		backend := a.cfg.Attempts.Backend
		if backend == "" {
			backend = "injected"
		}
		opts = append(opts, server.WithAttemptStore(a.store, backend))
		checkers = append(checkers, health.PingChecker("attempts", a.store))
	}
	if url := a.cfg.Lessons.DocumentURL; url != "" {
		checkers = append(checkers, health.Checker{
			Name:  "lessons",
			Check: func(context.Context) error { return a.fetcher.Ready(url) },
		})
	}
	opts = append(opts, server.WithHealth(health.New(a.version, checkers...)))
	if a.telemetry != nil {
		opts = append(opts, server.WithMetricsHandler(observe.MetricsHandler(a.telemetry.Registry)))
	}
	return opts
}

// DefaultRegistry returns a registry with the file and postgres attempt
// stores.
func DefaultRegistry() *config.Registry {
	reg := config.NewRegistry()
	reg.RegisterAttemptStore(config.BackendFile, func(_ context.Context, cfg config.AttemptsConfig) (attempt.Store, error) {
		return attempt.NewFileStore(cfg.Path), nil
	})
	reg.RegisterAttemptStore(config.BackendPostgres, func(ctx context.Context, cfg config.AttemptsConfig) (attempt.Store, error) {
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
	return reg
}

// NewEvaluator builds the evaluator described by the alignment and feedback
// sections of cfg.
func NewEvaluator(cfg *config.Config, m *observe.Metrics) (*dictation.Evaluator, error) {
	extra := make([]align.Phrase, len(cfg.Alignment.Phrases))
	for i, p := range cfg.Alignment.Phrases {
		extra[i] = align.Phrase{Source: p.Source, Target: p.Target}
	}
	table, err := align.WithSeed(extra...)
	if err != nil {
		return nil, err
	}
	alignOpts := []align.Option{align.WithPhrases(table)}
	if !cfg.Alignment.SplitMerge {
		alignOpts = append(alignOpts, align.WithoutSplit())
	}

	evalOpts := []dictation.EvaluatorOption{dictation.WithEvaluatorMetrics(m)}
	if t := cfg.Feedback.HintThreshold; t > 0 {
		evalOpts = append(evalOpts, dictation.WithHints(phonetic.New(phonetic.WithFuzzyThreshold(t))))
	}
	return dictation.NewEvaluator(align.New(alignOpts...), evalOpts...), nil
}

// NewFetcher builds the lesson fetcher described by cfg.
func NewFetcher(cfg config.LessonsConfig, m *observe.Metrics) *lesson.Fetcher {
	opts := []lesson.FetcherOption{
		lesson.WithCache(cfg.CacheSize, cfg.CacheTTL),
		lesson.WithMetrics(m),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lesson.WithTimeout(cfg.Timeout))
	}
	if cfg.DocumentURL != "" && len(cfg.Mirrors) > 0 {
		opts = append(opts, lesson.WithMirrors(cfg.DocumentURL, cfg.Mirrors...))
	}
	return lesson.NewFetcher(opts...)
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the HTTP handler of the service.
func (a *App) Handler() http.Handler { return a.server }

// Server returns the HTTP server component.
func (a *App) Server() *server.Server { return a.server }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on server.listen_addr and, when configured, watches the
// config file. It blocks until ctx is cancelled or the listener fails, then
// drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	slog.Info("listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// applyConfig is the watcher callback. It applies the hot-reloadable parts
// of new and warns about the rest.
func (a *App) applyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Changed() {
		return
	}
	if d.LogLevelChanged {
		a.level.Set(d.NewLogLevel.Level())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.AlignerChanged || d.TrimChanged || d.HintsChanged {
		eval, err := NewEvaluator(new, a.metrics)
		if err != nil {
			slog.Error("config reload: keeping previous aligner", "err", err)
		} else {
			a.server.Reload(server.Settings{
				Evaluator:          eval,
				TrimWhileListening: new.Alignment.TrimWhileListening,
			})
			slog.Info("alignment settings reloaded",
				"split_merge", new.Alignment.SplitMerge,
				"phrases", len(new.Alignment.Phrases),
				"trim_while_listening", new.Alignment.TrimWhileListening,
				"hint_threshold", new.Feedback.HintThreshold,
			)
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "sections", d.RestartRequired)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		if a.watcher != nil {
			a.watcher.Stop()
		}
		shutdownErr = a.runClosers(ctx)
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll releases what a failed New already set up.
func (a *App) closeAll(ctx context.Context) {
	_ = a.runClosers(ctx)
}

func (a *App) runClosers(ctx context.Context) error {
	for i, closer := range a.closers {
		select {
		case <-ctx.Done():
			slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
			return ctx.Err()
		default:
		}
		if err := closer(ctx); err != nil {
			slog.Warn("closer error", "index", i, "err", err)
		}
	}
	a.closers = nil
	return nil
}
