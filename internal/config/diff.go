package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	CORSChanged    bool
	NewCORSOrigins []string

	ScoringChanged bool
	NewScoring     ScoringConfig

	// RestartRequired lists settings that changed but only take effect after
	// a restart.
	RestartRequired []string
}

// Changed reports whether any hot-reloadable setting differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.CORSChanged || d.ScoringChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Server.AllowedOrigins(), new.Server.AllowedOrigins()) {
		d.CORSChanged = true
		d.NewCORSOrigins = new.Server.AllowedOrigins()
	}

	if old.Scoring != new.Scoring {
		d.ScoringChanged = true
		d.NewScoring = new.Scoring
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Server.MaxConcurrentAnalyses != new.Server.MaxConcurrentAnalyses {
		d.RestartRequired = append(d.RestartRequired, "server.max_concurrent_analyses")
	}
	if !sameEntry(old.Providers.STT, new.Providers.STT) {
		d.RestartRequired = append(d.RestartRequired, "providers.stt")
	}
	if !sameEntry(old.Providers.Phonemizer, new.Providers.Phonemizer) {
		d.RestartRequired = append(d.RestartRequired, "providers.phonemizer")
	}
	if old.Analysis.RemoteURL != new.Analysis.RemoteURL {
		d.RestartRequired = append(d.RestartRequired, "analysis.remote_url")
	}
	if old.Storage.PostgresDSN != new.Storage.PostgresDSN {
		d.RestartRequired = append(d.RestartRequired, "storage.postgres_dsn")
	}

	return d
}

// sameEntry compares the scalar fields of two provider entries.
func sameEntry(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL && a.Model == b.Model
}
