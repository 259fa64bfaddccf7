package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/speaktrainer/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.CORSOrigins = []string{"https://speak.example.com"}
	cfg.Providers.STT = config.ProviderEntry{Name: "whisper", BaseURL: "http://whisper:8080"}
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	d := config.Diff(cfg, baseConfig())
	if d.Changed() {
		t.Errorf("expected no hot-reloadable change, got %+v", d)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired = %v, want none", d.RestartRequired)
	}
}

func TestDiff_HotReloadable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		check  func(*testing.T, config.ConfigDiff)
	}{
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Server.LogLevel = config.LogDebug },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
					t.Errorf("got %v/%q", d.LogLevelChanged, d.NewLogLevel)
				}
			},
		},
		{
			name:   "cors origins",
			mutate: func(c *config.Config) { c.Server.CORSOrigins = append(c.Server.CORSOrigins, "https://beta.example.com") },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.CORSChanged || len(d.NewCORSOrigins) != 2 {
					t.Errorf("got %v/%v", d.CORSChanged, d.NewCORSOrigins)
				}
			},
		},
		{
			name:   "scoring policy",
			mutate: func(c *config.Config) { c.Scoring.IgnoreStress = true },
			check: func(t *testing.T, d config.ConfigDiff) {
				if !d.ScoringChanged || !d.NewScoring.IgnoreStress {
					t.Errorf("got %v/%+v", d.ScoringChanged, d.NewScoring)
				}
				if d.LogLevelChanged || d.CORSChanged {
					t.Error("unrelated changes reported")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			updated := baseConfig()
			tt.mutate(updated)
			d := config.Diff(baseConfig(), updated)
			if !d.Changed() {
				t.Fatal("Changed() = false")
			}
			tt.check(t, d)
		})
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	updated := baseConfig()
	updated.Server.ListenAddr = ":9999"
	updated.Providers.STT.Model = "large-v3"
	updated.Storage.PostgresDSN = "postgres://db/other"

	d := config.Diff(baseConfig(), updated)
	if d.Changed() {
		t.Errorf("restart-only settings reported as hot-reloadable: %+v", d)
	}
	want := []string{"server.listen_addr", "providers.stt", "storage.postgres_dsn"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
}
