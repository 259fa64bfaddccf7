package whisper

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// errNotWAV is returned when the native provider receives a non-WAV upload.
var errNotWAV = errors.New("native provider only accepts WAV audio")

// decodeWAV parses a WAV file and returns mono float32 samples at 16 kHz,
// normalised to [-1.0, 1.0], together with the recording duration.
func decodeWAV(data []byte) ([]float32, time.Duration, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, errNotWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, 0, errors.New("decode wav: missing format")
	}

	mono := downmix(buf)
	dur := time.Duration(len(mono)) * time.Second / time.Duration(buf.Format.SampleRate)
	return resample(mono, buf.Format.SampleRate, whisperSampleRate), dur, nil
}

// downmix averages all channels of an integer PCM buffer into normalised mono
// float32 samples.
func downmix(buf *audio.IntBuffer) []float32 {
	channels := max(buf.Format.NumChannels, 1)
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += float32(buf.Data[i*channels+ch]) / scale
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// resample converts samples from one rate to another by linear interpolation.
// It returns the input unchanged when the rates already match.
func resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 || from <= 0 || to <= 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}
