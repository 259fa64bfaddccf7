package analysis

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/MrWong99/speaktrainer/internal/observe"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
)

const defaultRemoteTimeout = 30 * time.Second

// RemoteError is returned by [Remote] when the remote instance answers with a
// non-200 status.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("analysis: remote returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Remote is an [Analyzer] that delegates to another SpeakTrainer instance's
// POST /analyze and POST /transcribe endpoints.
type Remote struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observe.Metrics
}

var _ Analyzer = (*Remote)(nil)

// RemoteOption is a functional option for [NewRemote].
type RemoteOption func(*Remote)

// WithHTTPClient replaces the default HTTP client (30 s timeout).
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.httpClient = c }
}

// WithRemoteMetrics records request metrics on m. Default: [observe.DefaultMetrics].
func WithRemoteMetrics(m *observe.Metrics) RemoteOption {
	return func(r *Remote) { r.metrics = m }
}

// NewRemote creates a [Remote] for the instance at baseURL
// (e.g. "http://ml:8001").
func NewRemote(baseURL string, opts ...RemoteOption) (*Remote, error) {
	if baseURL == "" {
		return nil, errors.New("analysis: remote base URL must not be empty")
	}
	r := &Remote{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRemoteTimeout},
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r, nil
}

// Analyze implements [Analyzer].
func (r *Remote) Analyze(ctx context.Context, req Request) (*Result, error) {
	text, err := ValidateText(req.ExpectedText, 0)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{"expected_text": text}
	if lang := req.Language; lang != "" {
		fields["language"] = lang
	}
	var res Result
	if err := r.post(ctx, "/analyze", fields, req.Audio, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Transcribe implements [Analyzer].
func (r *Remote) Transcribe(ctx context.Context, audio stt.Audio) (string, error) {
	var res struct {
		Transcription string `json:"transcription"`
	}
	if err := r.post(ctx, "/transcribe", nil, audio, &res); err != nil {
		return "", err
	}
	return res.Transcription, nil
}

func (r *Remote) post(ctx context.Context, path string, fields map[string]string, audio stt.Audio, out any) (err error) {
	if len(audio.Data) == 0 {
		return fmt.Errorf("analysis: %w", stt.ErrEmptyAudio)
	}
	ctx, span := observe.StartSpan(ctx, "analysis.remote"+strings.ReplaceAll(path, "/", "."))
	defer span.End()
	start := time.Now()
	defer func() {
		err = r.metrics.ObserveProvider(ctx, r.metrics.RemoteDuration, r.baseURL, observe.KindRemote, start, err)
		observe.RecordError(span, err)
	}()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("analysis: write %s field: %w", k, err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio_file"; filename=%q`, audio.UploadName()))
	h.Set("Content-Type", cmp.Or(audio.ContentType, "application/octet-stream"))
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("analysis: create form file: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return fmt.Errorf("analysis: write audio data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("analysis: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("analysis: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis: remote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("analysis: parse remote response: %w", err)
	}
	return nil
}

// remoteError extracts the {"error": "..."} message of a failed response,
// falling back to the raw body.
func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			msg = body.Error
		} else if body.Detail != "" {
			msg = body.Detail
		}
	}
	return &RemoteError{StatusCode: resp.StatusCode, Message: msg}
}
