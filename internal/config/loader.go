package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidBackendNames lists the attempt store backends shipped with diktat.
// Used by [Validate] to warn about unrecognised backend names.
var ValidBackendNames = []string{BackendFile, BackendPostgres}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Alignment
	for i, p := range cfg.Alignment.Phrases {
		prefix := fmt.Sprintf("alignment.phrases[%d]", i)
		if len(p.Source) == 0 || slices.Contains(p.Source, "") {
			errs = append(errs, fmt.Errorf("%s.source must list at least one non-empty word", prefix))
		}
		if len(p.Target) == 0 || slices.Contains(p.Target, "") {
			errs = append(errs, fmt.Errorf("%s.target must list at least one non-empty word", prefix))
		}
	}

	// Feedback
	if t := cfg.Feedback.HintThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("feedback.hint_threshold %.2f is out of range [0, 1]", t))
	}

	// Lessons
	if cfg.Lessons.DocumentURL != "" {
		if err := validateURL(cfg.Lessons.DocumentURL); err != nil {
			errs = append(errs, fmt.Errorf("lessons.document_url: %w", err))
		}
	} else if len(cfg.Lessons.Mirrors) > 0 {
		errs = append(errs, errors.New("lessons.mirrors requires lessons.document_url"))
	}
	for i, m := range cfg.Lessons.Mirrors {
		if err := validateURL(m); err != nil {
			errs = append(errs, fmt.Errorf("lessons.mirrors[%d]: %w", i, err))
		}
	}
	for i, d := range cfg.Lessons.Documents {
		if err := validateURL(d); err != nil {
			errs = append(errs, fmt.Errorf("lessons.documents[%d]: %w", i, err))
		}
	}
	if cfg.Lessons.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("lessons.cache_size %d must not be negative", cfg.Lessons.CacheSize))
	}
	if cfg.Lessons.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("lessons.cache_ttl %s must not be negative", cfg.Lessons.CacheTTL))
	}
	if cfg.Lessons.Timeout < 0 {
		errs = append(errs, fmt.Errorf("lessons.timeout %s must not be negative", cfg.Lessons.Timeout))
	}
	if cfg.Lessons.DocumentURL == "" && len(cfg.Lessons.Documents) == 0 {
		slog.Warn("lessons.document_url and lessons.documents are empty; the lessons endpoint serves nothing")
	}

	// Attempts
	switch cfg.Attempts.Backend {
	case "":
	case BackendFile:
		if cfg.Attempts.Path == "" {
			errs = append(errs, errors.New("attempts.path is required when backend is file"))
		}
	case BackendPostgres:
		if cfg.Attempts.PostgresDSN == "" {
			errs = append(errs, errors.New("attempts.postgres_dsn is required when backend is postgres"))
		}
	default:
		slog.Warn("unknown attempt store backend, may be a typo or third-party backend",
			"backend", cfg.Attempts.Backend,
			"known", ValidBackendNames,
		)
	}

	return errors.Join(errs...)
}

// validateURL checks that raw is an absolute http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
