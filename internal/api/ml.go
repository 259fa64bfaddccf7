package api

import (
	"net/http"
	"time"

	"github.com/MrWong99/speaktrainer/internal/analysis"
	"github.com/MrWong99/speaktrainer/pkg/phoneme"
)

// analyze serves POST /analyze: score an upload against free text.
func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	audio, err := h.parseUpload(w, r)
	defer cleanupForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, present := r.MultipartForm.Value["expected_text"]; !present {
		writeError(w, http.StatusBadRequest, "expected_text is required")
		return
	}

	release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	res, err := h.deps.Analyzer.Analyze(ctx, analysis.Request{
		ExpectedText: r.FormValue("expected_text"),
		Audio:        audio,
		Language:     audio.Language,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logComplete(r, "analysis served", start, "score", res.Score)
	writeJSON(w, http.StatusOK, res)
}

// transcribe serves POST /transcribe.
func (h *handler) transcribe(w http.ResponseWriter, r *http.Request) {
	audio, err := h.parseUpload(w, r)
	defer cleanupForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	text, err := h.deps.Analyzer.Transcribe(ctx, audio)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcription": text})
}

type compareRequest struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type compareResponse struct {
	phoneme.Result
	DiffText string `json:"diff_text"`
}

// compare serves POST /api/compare: align two phonetic strings directly.
func (h *handler) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Comparer().Compare(req.Expected, req.Actual)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{Result: res, DiffText: res.Diff.String()})
}
