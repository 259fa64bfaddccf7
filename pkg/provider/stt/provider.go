// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider turns one recorded utterance into text. Learners upload a
// complete recording per practice attempt, so the interface is batch-shaped:
// the whole [Audio] goes in and a single [Transcript] comes out. Backends that
// are streaming by nature (Deepgram) buffer the result internally.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when Transcribe is called without audio data.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts audio into text. An empty Transcript.Text is a valid
	// result (silence or unintelligible speech), not an error.
	//
	// Returns an error if the backend is unreachable, rejects the audio, or ctx
	// is cancelled before the result is available.
	Transcribe(ctx context.Context, audio Audio) (Transcript, error)
}
