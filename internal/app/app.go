// Package app wires the SpeakTrainer subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates stores, the analyzer
// and the HTTP handler chain, Run serves requests, and Shutdown drains the
// server and tears everything down in order.
//
// For testing, inject stores or an analyzer via functional options
// (WithPromptStore, WithAnalyzer, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/speaktrainer/internal/analysis"
	"github.com/MrWong99/speaktrainer/internal/api"
	"github.com/MrWong99/speaktrainer/internal/config"
	"github.com/MrWong99/speaktrainer/internal/health"
	"github.com/MrWong99/speaktrainer/internal/observe"
	"github.com/MrWong99/speaktrainer/internal/prompt"
	"github.com/MrWong99/speaktrainer/internal/resilience"
	"github.com/MrWong99/speaktrainer/internal/session"
	"github.com/MrWong99/speaktrainer/internal/storage"
	"github.com/MrWong99/speaktrainer/pkg/phoneme"
	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
)

// Named pairs a provider with the name it was registered under.
type Named[T any] struct {
	Name     string
	Provider T
}

// Providers holds the configured provider chains. The first entry of each
// slice is the primary; the rest are fallbacks tried in order. Populated by
// main.go via the config registry.
type Providers struct {
	STT        []Named[stt.Provider]
	Phonemizer []Named[phonemizer.Provider]
}

// App owns all subsystem lifetimes of the SpeakTrainer server.
type App struct {
	cfg       *config.Config
	providers *Providers

	prompts  prompt.Store
	sessions session.Store
	analyzer analysis.Analyzer
	local    *analysis.Service
	comparer atomic.Pointer[phoneme.Comparer]

	metrics        *observe.Metrics
	metricsHandler http.Handler
	level          *slog.LevelVar
	checkers       []health.Checker

	cors    *api.CORS
	handler http.Handler
	server  *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithPromptStore injects a prompt store instead of creating one from config.
func WithPromptStore(s prompt.Store) Option {
	return func(a *App) { a.prompts = s }
}

// WithSessionStore injects a session store instead of creating one from config.
func WithSessionStore(s session.Store) Option {
	return func(a *App) { a.sessions = s }
}

// WithAnalyzer injects an analyzer instead of building one from the providers.
func WithAnalyzer(an analysis.Analyzer) Option {
	return func(a *App) { a.analyzer = an }
}

// WithMetrics sets the metrics instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithLevelVar lets hot reload change the log level through v.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles.
//
// New performs all initialisation synchronously: store connection and
// migration, prompt seeding, analyzer construction and handler assembly.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
	}
	a.level.Set(slogLevel(cfg.Server.LogLevel))

	c, err := NewComparer(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("app: scoring: %w", err)
	}
	a.comparer.Store(c)

	if err := a.initStorage(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init storage: %w", err)
	}
	if err := a.seedPrompts(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: seed prompts: %w", err)
	}
	if err := a.initAnalyzer(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init analyzer: %w", err)
	}
	a.initHTTP()
	return a, nil
}

// initStorage opens PostgreSQL when a DSN is configured and falls back to
// in-memory stores otherwise.
func (a *App) initStorage(ctx context.Context) error {
	if a.prompts != nil && a.sessions != nil {
		return nil
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		if a.prompts == nil {
			a.prompts = prompt.NewMemStore()
		}
		if a.sessions == nil {
			a.sessions = session.NewMemStore()
		}
		slog.Info("using in-memory storage")
		return nil
	}

	store, err := storage.Open(ctx, config.EnsureSSLMode(dsn, a.cfg.Server.Environment),
		storage.WithAttempts(a.cfg.Storage.ConnectAttempts),
		storage.WithDelay(a.cfg.Storage.ConnectDelay),
	)
	if err != nil {
		return err
	}
	if a.prompts == nil {
		a.prompts = store.Prompts()
	}
	if a.sessions == nil {
		a.sessions = store.Sessions()
	}
	a.checkers = append(a.checkers, health.Checker{Name: "database", Check: store.Ping})
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// seedPrompts fills an empty prompt store from the seed file or the built-in
// sentences.
func (a *App) seedPrompts(ctx context.Context) error {
	var texts []string
	switch {
	case a.cfg.Prompts.SeedFile != "":
		loaded, err := prompt.LoadSeedFile(a.cfg.Prompts.SeedFile)
		if err != nil {
			return err
		}
		texts = loaded
	case a.cfg.Prompts.ShouldSeedDefaults():
		texts = prompt.DefaultPrompts
	default:
		return nil
	}
	_, err := prompt.Seed(ctx, a.prompts, texts)
	return err
}

// initAnalyzer builds the remote client or the local analysis service with
// its provider fallback chains.
func (a *App) initAnalyzer() error {
	if a.analyzer != nil {
		return nil
	}

	if url := a.cfg.Analysis.RemoteURL; url != "" {
		remote, err := analysis.NewRemote(url, analysis.WithRemoteMetrics(a.metrics))
		if err != nil {
			return err
		}
		a.analyzer = remote
		slog.Info("delegating analysis to remote service", "url", url)
		return nil
	}

	ph, phName := a.phonemizerChain()
	if ph == nil {
		return errors.New("no phonemizer configured")
	}
	transcriber, sttName := a.sttChain()
	if transcriber == nil {
		slog.Warn("no STT provider configured; audio analysis will return 503")
	}

	a.local = analysis.NewService(transcriber, ph,
		analysis.WithComparer(a.comparer.Load()),
		analysis.WithLanguage(a.cfg.Analysis.Language),
		analysis.WithMaxTextLength(a.cfg.Analysis.MaxTextLength),
		analysis.WithMetrics(a.metrics),
		analysis.WithProviderNames(sttName, phName),
	)
	a.analyzer = a.local

	if checker, ok := a.providers.Phonemizer[0].Provider.(interface{ Check(context.Context) error }); ok {
		a.checkers = append(a.checkers, health.Checker{Name: "phonemizer", Check: checker.Check})
	}
	return nil
}

func (a *App) sttChain() (stt.Provider, string) {
	entries := a.providers.STT
	if len(entries) == 0 {
		return nil, ""
	}
	a.registerCloser(entries[0].Provider)
	if len(entries) == 1 {
		return entries[0].Provider, entries[0].Name
	}
	fb := resilience.NewSTTFallback(entries[0].Provider, entries[0].Name, a.fallbackConfig(observe.KindSTT))
	for _, e := range entries[1:] {
		fb.AddFallback(e.Name, e.Provider)
		a.registerCloser(e.Provider)
	}
	return fb, entries[0].Name
}

func (a *App) phonemizerChain() (phonemizer.Provider, string) {
	entries := a.providers.Phonemizer
	if len(entries) == 0 {
		return nil, ""
	}
	if len(entries) == 1 {
		return entries[0].Provider, entries[0].Name
	}
	fb := resilience.NewPhonemizerFallback(entries[0].Provider, entries[0].Name, a.fallbackConfig(observe.KindPhonemizer))
	for _, e := range entries[1:] {
		fb.AddFallback(e.Name, e.Provider)
	}
	return fb, entries[0].Name
}

// fallbackConfig counts breaker transitions of kind providers.
func (a *App) fallbackConfig(kind string) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, _, to resilience.State) {
				a.metrics.RecordCircuitTransition(context.Background(), name, kind, to.String())
			},
		},
	}
}

// registerCloser schedules p.Close for Shutdown when p holds resources (the
// native whisper model does).
func (a *App) registerCloser(p any) {
	if c, ok := p.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}
}

// initHTTP assembles observe middleware → CORS → API routes and the server.
func (a *App) initHTTP() {
	s := a.cfg.Server
	a.cors = api.NewCORS(s.AllowedOrigins())

	mux := api.New(api.Deps{
		Prompts:  a.prompts,
		Sessions: session.NewService(a.prompts, a.sessions, a.analyzer),
		Analyzer: a.analyzer,
		Comparer: a.comparer.Load,
		Health:   health.New("api", a.checkers...),
		Metrics:  a.metricsHandler,
	},
		api.WithMaxUploadBytes(s.MaxUploadBytes),
		api.WithConcurrency(s.MaxConcurrentAnalyses),
		api.WithRequestTimeout(s.RequestTimeout),
		api.WithDetailedErrors(s.Environment != config.EnvProduction),
	)
	a.handler = observe.Middleware(a.metrics)(a.cors.Middleware(mux))

	a.server = &http.Server{
		Addr:              s.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and analyses are bounded by the request timeout; leave
		// headroom for reading the body and writing the response.
		WriteTimeout: s.RequestTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}
}

// Handler returns the complete HTTP handler chain.
func (a *App) Handler() http.Handler { return a.handler }

// Analyzer returns the analyzer serving requests.
func (a *App) Analyzer() analysis.Analyzer { return a.analyzer }

// Run listens on the configured address and serves until ctx is cancelled.
// It returns ctx.Err() on cancellation or the server error if serving fails.
// Call Shutdown afterwards to drain in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		if tls := a.cfg.Server.TLS; tls != nil {
			errCh <- a.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
			return
		}
		errCh <- a.server.Serve(ln)
	}()

	slog.Info("server listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// Shutdown stops accepting requests, waits for in-flight ones and then runs
// the closers in reverse-init order. It respects the context deadline: if
// ctx expires, remaining closers are skipped and the context error is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				slog.Warn("http server shutdown error", "err", err)
				shutdownErr = err
			}
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll releases resources acquired by a failed New.
func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
