package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Hot-reloadable changes are tracked individually; everything else is
// collected in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AlignerChanged is true if split_merge or the phrase table changed; the
	// aligner has to be rebuilt.
	AlignerChanged bool

	TrimChanged  bool
	HintsChanged bool

	// RestartRequired lists the config sections whose changes only take
	// effect after a restart.
	RestartRequired []string
}

// Changed reports whether d holds any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.AlignerChanged || d.TrimChanged || d.HintsChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Alignment.SplitMerge != new.Alignment.SplitMerge ||
		!slices.EqualFunc(old.Alignment.Phrases, new.Alignment.Phrases, phraseEqual) {
		d.AlignerChanged = true
	}
	d.TrimChanged = old.Alignment.TrimWhileListening != new.Alignment.TrimWhileListening
	d.HintsChanged = old.Feedback.HintThreshold != new.Feedback.HintThreshold

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.LogFile != new.Server.LogFile ||
		!slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if old.Lessons.DocumentURL != new.Lessons.DocumentURL ||
		!slices.Equal(old.Lessons.Mirrors, new.Lessons.Mirrors) ||
		!slices.Equal(old.Lessons.Documents, new.Lessons.Documents) ||
		old.Lessons.CacheSize != new.Lessons.CacheSize ||
		old.Lessons.CacheTTL != new.Lessons.CacheTTL ||
		old.Lessons.Timeout != new.Lessons.Timeout {
		d.RestartRequired = append(d.RestartRequired, "lessons")
	}
	if old.Attempts != new.Attempts {
		d.RestartRequired = append(d.RestartRequired, "attempts")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}

	return d
}

func phraseEqual(a, b PhraseConfig) bool {
	return slices.Equal(a.Source, b.Source) && slices.Equal(a.Target, b.Target)
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
