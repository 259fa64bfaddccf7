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

	"github.com/MrWong99/speaktrainer/pkg/phoneme"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":        {"whisper", "whisper-native", "deepgram", "openai"},
	"phonemizer": {"espeak", "llm"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. An empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
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
	s := cfg.Server
	if s.LogLevel != "" && !s.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", s.LogLevel))
	}
	if s.Environment != "" && !s.Environment.IsValid() {
		errs = append(errs, fmt.Errorf("server.environment %q is invalid; valid values: development, production", s.Environment))
	}
	if s.TLS != nil && (s.TLS.CertFile == "" || s.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	if s.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes %d must not be negative", s.MaxUploadBytes))
	}
	if s.MaxConcurrentAnalyses < 0 {
		errs = append(errs, fmt.Errorf("server.max_concurrent_analyses %d must not be negative", s.MaxConcurrentAnalyses))
	}
	if s.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout %s must not be negative", s.RequestTimeout))
	}
	for i, origin := range s.CORSOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.cors_origins[%d] %q must be \"*\" or scheme://host", i, origin))
		}
	}

	if s.Environment == EnvProduction && len(s.CORSOrigins) == 0 {
		slog.Warn("server.cors_origins is empty in production; browser clients will be rejected")
	}

	// Providers
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("phonemizer", cfg.Providers.Phonemizer.Name)
	for i, fb := range cfg.Providers.STTFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.stt_fallbacks[%d].name is required", i))
		}
		validateProviderName("stt", fb.Name)
	}
	for i, fb := range cfg.Providers.PhonemizerFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.phonemizer_fallbacks[%d].name is required", i))
		}
		validateProviderName("phonemizer", fb.Name)
	}

	// Analysis
	a := cfg.Analysis
	if a.RemoteURL != "" {
		if u, err := url.Parse(a.RemoteURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("analysis.remote_url %q must be an http(s) URL", a.RemoteURL))
		}
	} else if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider and no analysis.remote_url configured; audio analysis will be unavailable")
	}
	if a.MaxTextLength < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_text_length %d must not be negative", a.MaxTextLength))
	}

	// Scoring
	if _, err := phoneme.ParseDenominator(cfg.Scoring.Denominator); err != nil {
		errs = append(errs, fmt.Errorf("scoring.denominator: %w", err))
	}
	if cfg.Scoring.MaxCells < 0 {
		errs = append(errs, fmt.Errorf("scoring.max_cells %d must not be negative", cfg.Scoring.MaxCells))
	}

	// Storage
	if cfg.Storage.ConnectAttempts < 0 {
		errs = append(errs, fmt.Errorf("storage.connect_attempts %d must not be negative", cfg.Storage.ConnectAttempts))
	}
	if cfg.Storage.ConnectDelay < 0 {
		errs = append(errs, fmt.Errorf("storage.connect_delay %s must not be negative", cfg.Storage.ConnectDelay))
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; prompts and sessions will be kept in memory only")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
