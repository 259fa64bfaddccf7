// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// streaming WebSocket API. It implements the stt.Provider interface.
//
// A recording is streamed to the socket in fixed-size binary frames, followed
// by a CloseStream message. Deepgram then flushes its remaining results and
// closes the connection; every final result is joined into one Transcript.
// Deepgram detects the container format itself, so no encoding is declared.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
	"github.com/coder/websocket"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"

	// frameSize is the number of bytes sent per binary WebSocket message.
	frameSize = 8 << 10
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default language code for recognition (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithEndpoint overrides the WebSocket endpoint. Used by tests and for
// self-hosted Deepgram deployments.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

var _ stt.Provider = (*Provider)(nil)

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe streams the recording to Deepgram and collects the final results.
func (p *Provider) Transcribe(ctx context.Context, audio stt.Audio) (stt.Transcript, error) {
	if len(audio.Data) == 0 {
		return stt.Transcript{}, fmt.Errorf("deepgram: %w", stt.ErrEmptyAudio)
	}
	lang := audio.Language
	if lang == "" {
		lang = p.language
	}

	wsURL, err := p.buildURL(lang)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	// Results arrive while the upload is still in flight, so reading runs
	// concurrently with writing.
	type collected struct {
		t   stt.Transcript
		err error
	}
	resCh := make(chan collected, 1)
	go func() {
		t, err := collect(ctx, conn)
		resCh <- collected{t, err}
	}()

	if err := send(ctx, conn, audio.Data); err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: send audio: %w", err)
	}

	select {
	case res := <-resCh:
		if res.err != nil {
			return stt.Transcript{}, fmt.Errorf("deepgram: read results: %w", res.err)
		}
		res.t.Language = lang
		conn.Close(websocket.StatusNormalClosure, "done")
		return res.t, nil
	case <-ctx.Done():
		return stt.Transcript{}, fmt.Errorf("deepgram: %w", ctx.Err())
	}
}

// buildURL constructs the Deepgram streaming endpoint URL.
func (p *Provider) buildURL(lang string) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// send writes data in frames and then asks Deepgram to flush and close.
func send(ctx context.Context, conn *websocket.Conn, data []byte) error {
	for off := 0; off < len(data); off += frameSize {
		end := min(off+frameSize, len(data))
		if err := conn.Write(ctx, websocket.MessageBinary, data[off:end]); err != nil {
			return err
		}
	}
	return conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))
}

// collect reads messages until Deepgram closes the stream or sends its
// Metadata summary, joining every final result.
func collect(ctx context.Context, conn *websocket.Conn) (stt.Transcript, error) {
	var (
		out      stt.Transcript
		parts    []string
		confSum  float64
		finalCnt int
	)
	finish := func() stt.Transcript {
		out.Text = strings.Join(parts, " ")
		if finalCnt > 0 {
			out.Confidence = confSum / float64(finalCnt)
		}
		return out
	}

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return finish(), nil
			}
			return stt.Transcript{}, err
		}

		resp, ok := parseDeepgramResponse(msg)
		if !ok {
			continue
		}
		if resp.Type == "Metadata" {
			if resp.Duration > 0 {
				out.Duration = time.Duration(resp.Duration * float64(time.Second))
			}
			return finish(), nil
		}
		if !resp.IsFinal || len(resp.Channel.Alternatives) == 0 {
			continue
		}

		alt := resp.Channel.Alternatives[0]
		if text := strings.TrimSpace(alt.Transcript); text != "" {
			parts = append(parts, text)
		}
		confSum += alt.Confidence
		finalCnt++
		for _, w := range alt.Words {
			out.Words = append(out.Words, stt.WordDetail{
				Word:       w.Word,
				Start:      time.Duration(w.Start * float64(time.Second)),
				End:        time.Duration(w.End * float64(time.Second)),
				Confidence: w.Confidence,
			})
		}
	}
}

// deepgramResponse is the JSON structure returned by Deepgram for Results and
// Metadata events.
type deepgramResponse struct {
	Type     string  `json:"type"`
	IsFinal  bool    `json:"is_final"`
	Duration float64 `json:"duration"`
	Channel  struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseDeepgramResponse decodes a raw message. Messages of other types
// (SpeechStarted, UtteranceEnd) and malformed JSON are reported as !ok.
func parseDeepgramResponse(data []byte) (deepgramResponse, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return deepgramResponse{}, false
	}
	switch resp.Type {
	case "Results", "Metadata":
		return resp, true
	}
	return deepgramResponse{}, false
}
