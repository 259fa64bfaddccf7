// Package api serves the SpeakTrainer HTTP API: the prompt catalogue,
// practice sessions, the analysis endpoints and a text-only phoneme compare
// endpoint.
//
// [New] returns the route multiplexer. Cross-cutting concerns (tracing,
// metrics, CORS) are applied by the caller with [observe.Middleware] and
// [CORS.Middleware].
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/MrWong99/speaktrainer/internal/analysis"
	"github.com/MrWong99/speaktrainer/internal/health"
	"github.com/MrWong99/speaktrainer/internal/observe"
	"github.com/MrWong99/speaktrainer/internal/prompt"
	"github.com/MrWong99/speaktrainer/internal/resilience"
	"github.com/MrWong99/speaktrainer/internal/session"
	"github.com/MrWong99/speaktrainer/pkg/phoneme"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
)

// Deps are the services the API is built on. Prompts, Sessions and Analyzer
// are required.
type Deps struct {
	Prompts  prompt.Store
	Sessions *session.Service
	Analyzer analysis.Analyzer

	// Comparer returns the phoneme comparer for POST /api/compare. When nil,
	// a default comparer is used.
	Comparer func() *phoneme.Comparer

	// Health serves /health, /healthz and /readyz. When nil, a handler
	// without readiness checks is used.
	Health *health.Handler

	// Metrics serves GET /metrics. Optional.
	Metrics http.Handler
}

type options struct {
	maxUploadBytes int64
	concurrency    int
	requestTimeout time.Duration
	detailedErrors bool
	version        string
}

func defaultOptions() options {
	return options{
		maxUploadBytes: 10 << 20,
		concurrency:    4,
		requestTimeout: 60 * time.Second,
		detailedErrors: true,
		version:        buildVersion(),
	}
}

// Option configures the API handler.
type Option func(*options)

// WithMaxUploadBytes caps the request body of uploads and JSON requests.
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) { o.maxUploadBytes = n }
}

// WithConcurrency sets how many analyses and transcriptions may run at once.
// Zero or less removes the limit.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithRequestTimeout sets the deadline of a single analysis or transcription.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithDetailedErrors controls whether internal error messages are returned
// to clients. Production deployments turn this off.
func WithDetailedErrors(on bool) Option {
	return func(o *options) { o.detailedErrors = on }
}

// WithVersion sets the version reported by GET /.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	deps Deps
	opts options
	sem  chan struct{}
}

// New returns an http.Handler serving every SpeakTrainer route.
func New(deps Deps, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if deps.Health == nil {
		deps.Health = health.New("api")
	}
	if deps.Comparer == nil {
		c := phoneme.NewComparer()
		deps.Comparer = func() *phoneme.Comparer { return c }
	}

	h := &handler{deps: deps, opts: opts}
	if opts.concurrency > 0 {
		h.sem = make(chan struct{}, opts.concurrency)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleRoot)
	deps.Health.Register(mux)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.HandleFunc("GET /api/prompts", h.listPrompts)
	mux.HandleFunc("GET /api/prompts/random", h.randomPrompt)
	mux.HandleFunc("GET /api/prompts/{id}", h.getPrompt)
	mux.HandleFunc("POST /api/prompts", h.createPrompt)
	mux.HandleFunc("PUT /api/prompts/{id}", h.updatePrompt)
	mux.HandleFunc("DELETE /api/prompts/{id}", h.deletePrompt)

	mux.HandleFunc("POST /api/sessions/analyze", h.analyzeSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.getSession)
	mux.HandleFunc("GET /api/sessions", h.listSessions)

	mux.HandleFunc("POST /analyze", h.analyze)
	mux.HandleFunc("POST /transcribe", h.transcribe)
	mux.HandleFunc("POST /api/compare", h.compare)
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     "SpeakTrainer",
		"version":     h.opts.version,
		"description": "Pronunciation practice: prompts, sessions and phoneme scoring",
	})
}

// acquire takes a worker slot, honouring cancellation while waiting. The
// returned release func must be called when ok is true.
func (h *handler) acquire(w http.ResponseWriter, r *http.Request) (release func(), ok bool) {
	if h.sem == nil {
		return func() {}, true
	}
	select {
	case h.sem <- struct{}{}:
		return func() { <-h.sem }, true
	case <-r.Context().Done():
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for a free worker")
		return nil, false
	}
}

// withTimeout applies the per-request analysis deadline.
func (h *handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.opts.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.opts.requestTimeout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps err to an HTTP status and writes it as an error body.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	log := observe.Logger(r.Context()).With("method", r.Method, "path", r.URL.Path, "status", status)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err)
		if status == http.StatusInternalServerError && !h.opts.detailedErrors {
			msg = "internal server error"
		}
	} else {
		log.Debug("request rejected", "err", err)
	}
	writeError(w, status, msg)
}

// classify maps domain errors to HTTP status codes.
func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	var remote *analysis.RemoteError
	var bad *errBadRequest
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, bad.msg
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, phoneme.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, phoneme.ErrInvalidEncoding),
		errors.Is(err, analysis.ErrEmptyText),
		errors.Is(err, analysis.ErrTextTooLong),
		errors.Is(err, prompt.ErrEmptyText),
		errors.Is(err, prompt.ErrInvalidText),
		errors.Is(err, stt.ErrEmptyAudio):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrPromptNotFound), errors.Is(err, prompt.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &remote):
		if remote.StatusCode >= 400 && remote.StatusCode < 500 {
			return remote.StatusCode, remote.Message
		}
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, analysis.ErrSTTUnavailable), errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "analysis timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	case errors.Is(err, resilience.ErrAllFailed):
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

// logComplete records a finished analysis at info level.
func logComplete(r *http.Request, msg string, start time.Time, attrs ...any) {
	attrs = append(attrs, slog.Duration("duration", time.Since(start)))
	observe.Logger(r.Context()).Info(msg, attrs...)
}
