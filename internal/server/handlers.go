package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/triplehelix/internal/backend"
)

type handlers struct {
	storage Storage
	log     *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) upsertStitch(w http.ResponseWriter, r *http.Request) {
	var rec backend.StitchRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	// The URL is authoritative for the key.
	rec.ThreadID = chi.URLParam(r, "threadID")
	rec.StitchID = chi.URLParam(r, "stitchID")
	if rec.ThreadID == "" || rec.StitchID == "" {
		writeError(w, http.StatusBadRequest, "thread and stitch IDs required")
		return
	}
	if rec.Position < 0 {
		writeError(w, http.StatusBadRequest, "position must be non-negative")
		return
	}
	if rec.SkipDistance <= 0 {
		writeError(w, http.StatusBadRequest, "skip distance must be positive")
		return
	}

	if err := h.storage.SaveStitch(r.Context(), rec); err != nil {
		h.log.Error("save stitch failed", "thread", rec.ThreadID, "stitch", rec.StitchID, "err", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) listStitches(w http.ResponseWriter, r *http.Request) {
	recs, err := h.storage.LoadStitches(r.Context())
	if err != nil {
		h.log.Error("load stitches failed", "err", err)
		writeError(w, http.StatusInternalServerError, "load failed")
		return
	}
	if recs == nil {
		recs = []backend.StitchRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handlers) getState(w http.ResponseWriter, r *http.Request) {
	rec, ok, err := h.storage.LoadSession(r.Context())
	if err != nil {
		h.log.Error("load session failed", "err", err)
		writeError(w, http.StatusInternalServerError, "load failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no session state")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) putState(w http.ResponseWriter, r *http.Request) {
	var rec backend.SessionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if rec.ActiveTube < 1 || rec.ActiveTube > 3 {
		writeError(w, http.StatusBadRequest, "active tube must be 1-3")
		return
	}

	if err := h.storage.SaveSession(r.Context(), rec); err != nil {
		h.log.Error("save session failed", "err", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
