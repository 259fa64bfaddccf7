package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/speaktrainer/internal/analysis"
	"github.com/MrWong99/speaktrainer/internal/prompt"
	"github.com/MrWong99/speaktrainer/internal/session"
)

// analyzeSessionResponse is the body of POST /api/sessions/analyze.
type analyzeSessionResponse struct {
	SessionID        string           `json:"session_id"`
	Prompt           *prompt.Prompt   `json:"prompt"`
	Transcription    string           `json:"transcription"`
	Score            int              `json:"score"`
	ExpectedPhonemes string           `json:"expected_phonemes"`
	ActualPhonemes   string           `json:"actual_phonemes"`
	PhonemeDiff      string           `json:"phoneme_diff"`
	AnalysisDetails  *analysis.Result `json:"analysis_details"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (h *handler) analyzeSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	audio, err := h.parseUpload(w, r)
	defer cleanupForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	promptID := strings.TrimSpace(r.FormValue("prompt_id"))
	if promptID == "" {
		writeError(w, http.StatusBadRequest, "prompt_id is required")
		return
	}
	var userID *string
	if uid := strings.TrimSpace(r.FormValue("user_id")); uid != "" {
		userID = &uid
	}

	release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	out, err := h.deps.Sessions.AnalyzePronunciation(ctx, session.AnalyzeRequest{
		PromptID: promptID,
		UserID:   userID,
		Audio:    audio,
		Language: audio.Language,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logComplete(r, "session analysed", start, "session_id", out.Session.ID, "score", out.Session.Score)

	res := out.Result
	writeJSON(w, http.StatusOK, analyzeSessionResponse{
		SessionID:        out.Session.ID,
		Prompt:           out.Prompt,
		Transcription:    out.Session.Transcription,
		Score:            out.Session.Score,
		ExpectedPhonemes: res.ExpectedPhonemes,
		ActualPhonemes:   res.ActualPhonemes,
		PhonemeDiff:      res.DiffText,
		AnalysisDetails:  res,
		CreatedAt:        out.Session.CreatedAt,
	})
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset parameter")
		return
	}
	if limit <= 0 || limit > session.MaxListLimit {
		limit = session.MaxListLimit
	}

	sessions, err := h.deps.Sessions.List(r.Context(), session.ListOptions{
		Limit:  limit,
		Offset: offset,
		UserID: q.Get("user_id"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"limit":    limit,
		"offset":   offset,
	})
}

// intParam parses a non-negative integer query parameter, returning def when
// it is absent.
func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
