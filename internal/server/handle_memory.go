package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func handleFlip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cardID, err := strconv.Atoi(chi.URLParam(r, "cardID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid card id")
			return
		}

		sess := sessionFrom(r)
		if err := sess.Flip(cardID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.View())
	}
}

func handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if err := sess.Reset(); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.View())
	}
}
