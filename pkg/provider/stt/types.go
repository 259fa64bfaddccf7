package stt

import (
	"path/filepath"
	"strings"
	"time"
)

// Audio is one uploaded recording.
type Audio struct {
	// Data holds the complete file contents in its original container format
	// (wav, mp3, webm, ...).
	Data []byte

	// Filename is the client-supplied name. Providers use its extension as a
	// format hint when forwarding the file.
	Filename string

	// ContentType is the client-supplied MIME type, e.g. "audio/wav". May be empty.
	ContentType string

	// Language is the BCP-47 language hint (e.g. "en"). Empty lets the provider
	// fall back to its configured default.
	Language string
}

// Ext returns the lowercase file extension of the recording including the
// leading dot, or "" when the filename has none.
func (a Audio) Ext() string {
	return strings.ToLower(filepath.Ext(a.Filename))
}

// UploadName returns a filename suitable for a multipart upload. It falls back
// to "audio.wav" when the client did not supply one.
func (a Audio) UploadName() string {
	if a.Filename == "" {
		return "audio.wav"
	}
	return filepath.Base(a.Filename)
}

// Transcript is the result of transcribing one recording.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Language is the detected or requested language, when the provider reports it.
	Language string

	// Confidence is the overall confidence score (0.0–1.0). May be zero if the provider
	// does not report confidence.
	Confidence float64

	// Words contains per-word detail when available (Deepgram).
	// May be nil for providers that don't support word-level output.
	Words []WordDetail

	// Duration is the length of the recording, when known.
	Duration time.Duration
}

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}
