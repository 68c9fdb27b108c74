package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/facequest/trainer/internal/game"
	"github.com/facequest/trainer/internal/session"
	"github.com/facequest/trainer/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps engine errors to HTTP statuses. Anything unknown
// is reported as an internal error without detail.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, session.ErrUnsupported):
		writeError(w, http.StatusBadRequest, "operation not supported in this mode")
	case errors.Is(err, game.ErrInvalidMove):
		writeError(w, http.StatusBadRequest, "invalid move")
	case errors.Is(err, game.ErrBusy):
		writeError(w, http.StatusConflict, "busy, try again shortly")
	case errors.Is(err, game.ErrInvalidState):
		writeError(w, http.StatusConflict, "not allowed right now")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
