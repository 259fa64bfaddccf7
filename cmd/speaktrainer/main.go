// Command speaktrainer is the main entry point for the SpeakTrainer
// pronunciation practice server.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/speaktrainer/internal/app"
	"github.com/MrWong99/speaktrainer/internal/config"
	"github.com/MrWong99/speaktrainer/internal/observe"
	"github.com/MrWong99/speaktrainer/pkg/provider/llm/anyllm"
	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer"
	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer/espeak"
	llmphonemizer "github.com/MrWong99/speaktrainer/pkg/provider/phonemizer/llm"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt/deepgram"
	oaistt "github.com/MrWong99/speaktrainer/pkg/provider/stt/openai"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// ── Load configuration ────────────────────────────────────────────────────
	// The application is created after the watcher, so reloads are queued
	// until it exists.
	reloads := make(chan config.ConfigDiff, 8)
	cfg, watcher, err := loadConfig(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Changed() && len(d.RestartRequired) == 0 {
			return
		}
		select {
		case reloads <- d:
		default:
			slog.Warn("config reload dropped; previous reload still pending")
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "speaktrainer: %v\n", err)
		return 1
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	slog.Info("speaktrainer starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"environment", cfg.Server.Environment,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	var providers *app.Providers
	if cfg.Analysis.RemoteURL == "" {
		providers, err = buildProviders(cfg, reg)
		if err != nil {
			slog.Error("failed to build providers", "err", err)
			return 1
		}
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers,
		app.WithLevelVar(level),
		app.WithMetricsHandler(observe.MetricsHandler(nil)),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-reloads:
				application.ApplyDiff(d)
			}
		}
	}()

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig starts a watcher on path with environment overrides applied to
// every load. A missing file is not an error: the server then runs from
// defaults and environment variables alone, without hot reload.
func loadConfig(path string, onChange func(old, new *config.Config)) (*config.Config, *config.Watcher, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Info("config file not found, using defaults and environment", "path", path)
		cfg := &config.Config{}
		if err := config.ApplyEnv(cfg, nil); err != nil {
			return nil, nil, err
		}
		config.ApplyDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}
		return cfg, nil, nil
	}

	w, err := config.NewWatcher(path, onChange, config.WithEnv(os.LookupEnv))
	if err != nil {
		return nil, nil, err
	}
	return w.Current(), w, nil
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.OptionString("model_path", "")
		}
		var opts []whisper.NativeOption
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, oaistt.WithLanguage(lang))
		}
		return oaistt.New(entry.APIKey, opts...)
	})

	// ── Phonemizers ───────────────────────────────────────────────────────────

	reg.RegisterPhonemizer("espeak", func(entry config.ProviderEntry) (phonemizer.Provider, error) {
		var opts []espeak.Option
		if bin := entry.OptionString("binary", ""); bin != "" {
			opts = append(opts, espeak.WithBinary(bin))
		}
		if voice := entry.OptionString("voice", ""); voice != "" {
			opts = append(opts, espeak.WithVoice(voice))
		}
		return espeak.New(opts...), nil
	})

	// llm asks any any-llm-go backend for IPA. options.backend selects the
	// backend (openai, anthropic, ollama, ...).
	reg.RegisterPhonemizer("llm", func(entry config.ProviderEntry) (phonemizer.Provider, error) {
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		p, err := anyllm.New(entry.OptionString("backend", "openai"), entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return llmphonemizer.New(p, entry.OptionString("language", "")), nil
	})

	for _, kind := range []string{"stt", "phonemizer"} {
		slog.Debug("registered providers", "kind", kind, "names", reg.Names(kind))
	}
}

// buildProviders instantiates the primary and fallback providers named in
// cfg using the registry.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	for i, entry := range append([]config.ProviderEntry{cfg.Providers.STT}, cfg.Providers.STTFallbacks...) {
		if entry.Name == "" {
			continue
		}
		p, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
		}
		ps.STT = append(ps.STT, app.Named[stt.Provider]{Name: entry.Name, Provider: p})
		slog.Info("provider created", "kind", "stt", "name", entry.Name, "fallback", i > 0)
	}

	for i, entry := range append([]config.ProviderEntry{cfg.Providers.Phonemizer}, cfg.Providers.PhonemizerFallbacks...) {
		if entry.Name == "" {
			continue
		}
		p, err := reg.CreatePhonemizer(entry)
		if err != nil {
			return nil, fmt.Errorf("create phonemizer %q: %w", entry.Name, err)
		}
		ps.Phonemizer = append(ps.Phonemizer, app.Named[phonemizer.Provider]{Name: entry.Name, Provider: p})
		slog.Info("provider created", "kind", "phonemizer", "name", entry.Name, "fallback", i > 0)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      SpeakTrainer startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	if cfg.Analysis.RemoteURL != "" {
		printRow("Analysis", "remote")
	} else {
		printRow("Analysis", "local")
		printProvider("STT", cfg.Providers.STT, len(cfg.Providers.STTFallbacks))
		printProvider("Phonemizer", cfg.Providers.Phonemizer, len(cfg.Providers.PhonemizerFallbacks))
	}
	storage := "memory"
	if cfg.Storage.PostgresDSN != "" {
		storage = "postgres"
	}
	printRow("Storage", storage)
	printRow("Scoring", cmp.Or(cfg.Scoring.Denominator, "diff"))
	printRow("Environment", string(cfg.Server.Environment))
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind string, entry config.ProviderEntry, fallbacks int) {
	value := entry.Name
	switch {
	case value == "":
		value = "(not configured)"
	case entry.Model != "":
		value = entry.Name + " / " + entry.Model
	}
	if fallbacks > 0 {
		value += fmt.Sprintf(" +%d", fallbacks)
	}
	printRow(kind, value)
}

func printRow(key, value string) {
	if len([]rune(value)) > 22 {
		value = string([]rune(value)[:21]) + "…"
	}
	fmt.Printf("║  %-12s : %-22s ║\n", key, value)
}
