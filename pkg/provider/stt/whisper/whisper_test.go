package whisper_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
	"github.com/MrWong99/speaktrainer/pkg/provider/stt/whisper"
)

type inferenceRequest struct {
	filename string
	data     []byte
	fields   map[string]string
}

// newMockServer creates a test server that responds to POST /inference with a
// JSON body containing responseText and records the parsed form.
func newMockServer(t *testing.T, responseText string) (*httptest.Server, func() []inferenceRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []inferenceRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		fields := map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		mu.Lock()
		reqs = append(reqs, inferenceRequest{filename: hdr.Filename, data: data, fields: fields})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": responseText})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []inferenceRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]inferenceRequest(nil), reqs...)
	}
}

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	_, err := whisper.New("")
	if err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestTranscribe_SendsMultipartUpload(t *testing.T) {
	srv, requests := newMockServer(t, "  hello world \n")

	p, err := whisper.New(srv.URL+"/", whisper.WithModel("base.en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	audio := stt.Audio{Data: []byte("RIFFfakewav"), Filename: "take.webm", Language: "de"}
	tr, err := p.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "hello world" {
		t.Errorf("Text = %q, want %q", tr.Text, "hello world")
	}
	if tr.Language != "de" {
		t.Errorf("Language = %q, want de", tr.Language)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	got := reqs[0]
	if got.filename != "take.webm" {
		t.Errorf("filename = %q, want take.webm", got.filename)
	}
	if string(got.data) != "RIFFfakewav" {
		t.Errorf("data = %q, want original bytes", got.data)
	}
	for k, want := range map[string]string{"language": "de", "model": "base.en", "response_format": "json"} {
		if got.fields[k] != want {
			t.Errorf("field %s = %q, want %q", k, got.fields[k], want)
		}
	}
}

func TestTranscribe_DefaultsLanguageAndFilename(t *testing.T) {
	srv, requests := newMockServer(t, "ok")

	p, _ := whisper.New(srv.URL)
	if _, err := p.Transcribe(context.Background(), stt.Audio{Data: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	got := requests()[0]
	if got.filename != "audio.wav" {
		t.Errorf("filename = %q, want audio.wav", got.filename)
	}
	if got.fields["language"] != "en" {
		t.Errorf("language = %q, want en", got.fields["language"])
	}
	if _, ok := got.fields["model"]; ok {
		t.Error("model field should be omitted when unset")
	}
}

func TestTranscribe_EmptyTranscriptIsNotAnError(t *testing.T) {
	srv, _ := newMockServer(t, "")
	p, _ := whisper.New(srv.URL)
	tr, err := p.Transcribe(context.Background(), stt.Audio{Data: []byte{1}})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "" {
		t.Errorf("Text = %q, want empty", tr.Text)
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	p, _ := whisper.New("http://127.0.0.1:1")
	_, err := p.Transcribe(context.Background(), stt.Audio{})
	if !errors.Is(err, stt.ErrEmptyAudio) {
		t.Fatalf("err = %v, want ErrEmptyAudio", err)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	_, err := p.Transcribe(context.Background(), stt.Audio{Data: []byte{1}})
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestTranscribe_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Transcribe(ctx, stt.Audio{Data: []byte{1}}); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
