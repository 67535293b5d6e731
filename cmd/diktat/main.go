// Command diktat is the entry point of the dictation checker.
//
// Usage:
//
//	diktat [-config path] [serve]
//	diktat [-config path] align [-trim] [-color] <transcript> <sentence>
//	diktat [-config path] report [-limit n] <url>...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MrWong99/diktat/internal/app"
	"github.com/MrWong99/diktat/internal/config"
	"github.com/MrWong99/diktat/internal/dictation"
	"github.com/MrWong99/diktat/internal/feedback"
	"github.com/MrWong99/diktat/internal/lesson"
	"github.com/MrWong99/diktat/internal/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Usage = usage
	flag.Parse()

	cmd, args := "serve", flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return serve(*configPath)
	case "align":
		return alignCmd(*configPath, args)
	case "report":
		return reportCmd(*configPath, args)
	default:
		fmt.Fprintf(os.Stderr, "diktat: unknown command %q\n", cmd)
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage:
  diktat [-config path] [serve]
  diktat [-config path] align [-trim] [-color] <transcript> <sentence>
  diktat [-config path] report [-limit n] <url>...

flags:
`)
	flag.PrintDefaults()
}

// ── serve ─────────────────────────────────────────────────────────────────────

func serve(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "diktat: config file %q not found; copy configs/example.yaml to get started\n", configPath)
		} else {
			fmt.Fprintf(os.Stderr, "diktat: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	logger, closeLog := newLogger(cfg.Server.LogFile, level)
	defer closeLog.Close()
	slog.SetDefault(logger)

	slog.Info("diktat starting",
		"version", version,
		"config", configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg,
		app.WithVersion(version),
		app.WithLevel(level),
		app.WithConfigWatch(configPath),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready; press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         diktat · startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Listen addr", cfg.Server.ListenAddr)
	printRow("Lessons", orDisabled(cfg.Lessons.DocumentURL))
	printRow("Mirrors", fmt.Sprint(len(cfg.Lessons.Mirrors)))
	printRow("Attempts", orDisabled(cfg.Attempts.Backend))
	printRow("Split/merge", fmt.Sprint(cfg.Alignment.SplitMerge))
	printRow("Extra phrases", fmt.Sprint(len(cfg.Alignment.Phrases)))
	printRow("Hint threshold", fmt.Sprint(cfg.Feedback.HintThreshold))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(key, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", key, value)
}

func orDisabled(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}

// ── align ─────────────────────────────────────────────────────────────────────

func alignCmd(configPath string, args []string) int {
	fs := flag.NewFlagSet("align", flag.ContinueOnError)
	trim := fs.Bool("trim", false, "do not report reference words after the last attempted one")
	color := fs.Bool("color", false, "colour the output with ANSI escapes instead of [+word]/[-word]")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "diktat: align needs exactly two arguments: <transcript> <sentence>")
		return 2
	}

	cfg, err := loadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diktat: %v\n", err)
		return 1
	}
	eval, err := app.NewEvaluator(cfg, observe.DefaultMetrics())
	if err != nil {
		fmt.Fprintf(os.Stderr, "diktat: %v\n", err)
		return 1
	}

	res := eval.Evaluate(context.Background(), dictation.OriginCLI, fs.Arg(0), fs.Arg(1), *trim)
	mark := feedback.Brackets
	if *color {
		mark = feedback.ANSI
	}
	writeFeedback(os.Stdout, res.Feedback, mark)
	if res.Feedback.Score.Cost > 0 {
		return 3
	}
	return 0
}

func writeFeedback(w io.Writer, fb feedback.Feedback, mark feedback.Marker) {
	if fb.Empty {
		fmt.Fprintln(w, "(empty transcript)")
		return
	}
	fmt.Fprintln(w, feedback.Text(fb, mark))
	for _, it := range fb.Items {
		if it.Hint != nil {
			fmt.Fprintf(w, "  %q sounds like %q (%.2f)\n", it.Text, it.Hint.Expected, it.Hint.Similarity)
		}
	}
	s := fb.Score
	fmt.Fprintf(w, "correct %d, missing %d, superfluous %d, accuracy %.0f%%\n",
		s.Correct, s.Added, s.Removed, 100*s.Accuracy)
}

// ── report ────────────────────────────────────────────────────────────────────

func reportCmd(configPath string, args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	limit := fs.Int("limit", 4, "maximum concurrent downloads")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	urls := fs.Args()

	cfg, err := loadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diktat: %v\n", err)
		return 1
	}
	if len(urls) == 0 && cfg.Lessons.DocumentURL != "" {
		urls = []string{cfg.Lessons.DocumentURL}
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "diktat: report needs at least one document URL")
		return 2
	}

	m := observe.DefaultMetrics()
	eval, err := app.NewEvaluator(cfg, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diktat: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := lesson.NewReporter(app.NewFetcher(cfg.Lessons, m), eval.Aligner().Normalizer(), *limit)
	reports, err := r.Run(ctx, urls...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diktat: %v\n", err)
		return 1
	}
	if err := lesson.WriteReports(os.Stdout, reports); err != nil {
		fmt.Fprintf(os.Stderr, "diktat: %v\n", err)
		return 1
	}
	return 0
}

// loadOrDefault loads the config at path; a missing file yields the
// defaults so the one-shot commands work without one.
func loadOrDefault(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// ── Logger ────────────────────────────────────────────────────────────────────

// newLogger logs text to stderr, or to a size-rotated file when file is set.
// The returned closer releases the file.
func newLogger(file string, level *slog.LevelVar) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: level}
	if file == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), io.NopCloser(nil)
	}
	w := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    64, // MB
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(w, opts)), w
}
