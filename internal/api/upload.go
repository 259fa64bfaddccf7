package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MrWong99/speaktrainer/pkg/provider/stt"
)

// audioExtensions are accepted even when the client sends a non-audio MIME
// type, as browsers often label recordings application/octet-stream.
var audioExtensions = []string{".wav", ".mp3", ".m4a", ".ogg", ".flac", ".webm"}

// maxFormMemory is the part of a multipart form kept in memory; the rest is
// spooled to temporary files.
const maxFormMemory = 32 << 20

// errBadRequest marks client errors in the upload that map to 400.
type errBadRequest struct{ msg string }

func (e *errBadRequest) Error() string { return e.msg }

// parseUpload reads the multipart form of r and returns the recording in the
// audio_file field. The body is capped at the configured upload size.
func (h *handler) parseUpload(w http.ResponseWriter, r *http.Request) (stt.Audio, error) {
	if h.opts.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(min(h.opts.maxUploadBytes, maxFormMemory)); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return stt.Audio{}, err
		}
		return stt.Audio{}, &errBadRequest{"invalid multipart form: " + err.Error()}
	}

	file, hdr, err := r.FormFile("audio_file")
	if err != nil {
		return stt.Audio{}, &errBadRequest{"audio_file is required"}
	}
	defer file.Close()

	contentType := hdr.Header.Get("Content-Type")
	if !isAudio(contentType, hdr.Filename) {
		return stt.Audio{}, &errBadRequest{fmt.Sprintf(
			"file must be an audio file; got content type %q, filename %q", contentType, hdr.Filename)}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return stt.Audio{}, fmt.Errorf("api: read audio_file: %w", err)
	}
	if len(data) == 0 {
		return stt.Audio{}, &errBadRequest{"audio_file is empty"}
	}
	return stt.Audio{
		Data:        data,
		Filename:    hdr.Filename,
		ContentType: contentType,
		Language:    strings.TrimSpace(r.FormValue("language")),
	}, nil
}

// isAudio reports whether an upload is acceptable: no content type, an
// audio/* content type, or a known audio file extension.
func isAudio(contentType, filename string) bool {
	if contentType == "" {
		return true
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "audio/") {
		return true
	}
	return slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(filename)))
}

// cleanupForm removes temporary files of a parsed multipart form.
func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
