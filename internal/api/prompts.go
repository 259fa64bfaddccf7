package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrWong99/speaktrainer/internal/prompt"
)

type promptRequest struct {
	Text string `json:"text"`
}

func (h *handler) listPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.deps.Prompts.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

func (h *handler) randomPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Prompts.Random(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "no prompts available")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) getPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Prompts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) createPrompt(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePrompt(w, r)
	if !ok {
		return
	}
	p, err := h.deps.Prompts.Create(r.Context(), req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) updatePrompt(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePrompt(w, r)
	if !ok {
		return
	}
	p, err := h.deps.Prompts.Update(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Prompts.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, prompt.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) decodePrompt(w http.ResponseWriter, r *http.Request) (promptRequest, bool) {
	var req promptRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return req, false
	}
	return req, true
}

// decodeJSON reads a single JSON object from the capped request body.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if h.opts.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.maxUploadBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return &errBadRequest{"invalid JSON: " + err.Error()}
	}
	return nil
}
