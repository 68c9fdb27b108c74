package server

import (
	"net/http"
	"strconv"

	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/store"
)

const maxResultsLimit = 100

func handleListResults(results ResultLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("mode")
		if mode != "" && !emotion.Mode(mode).Valid() {
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}

		limit := 20
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxResultsLimit)
		}

		list, err := results.ListResults(r.Context(), mode, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []store.Result{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
