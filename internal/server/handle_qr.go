package server

import (
	"net/http"
	"strconv"

	"github.com/skip2/go-qrcode"
)

// handleQR renders the public URL as a PNG so tablets can join by scanning.
func handleQR(publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if publicURL == "" {
			writeError(w, http.StatusNotFound, "public url not configured")
			return
		}

		size := 256
		if s := r.URL.Query().Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 64 || n > 1024 {
				writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
				return
			}
			size = n
		}

		png, err := qrcode.Encode(publicURL, qrcode.Medium, size)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
