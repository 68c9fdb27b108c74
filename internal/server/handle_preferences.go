package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facequest/trainer/internal/preferences"
	"github.com/facequest/trainer/internal/store"
)

type PreferencesRequest struct {
	MusicEnabled *bool `json:"musicEnabled"`
	SoundEnabled *bool `json:"soundEnabled"`
}

type PreferencesResponse struct {
	Player       string `json:"player"`
	MusicEnabled bool   `json:"musicEnabled"`
	SoundEnabled bool   `json:"soundEnabled"`
}

func toPreferencesResponse(p store.Preferences) PreferencesResponse {
	return PreferencesResponse{
		Player:       p.Player,
		MusicEnabled: p.MusicEnabled,
		SoundEnabled: p.SoundEnabled,
	}
}

func handleGetPreferences(prefs *preferences.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toPreferencesResponse(prefs.Get(chi.URLParam(r, "player"))))
	}
}

// handleSetPreferences updates only the fields present in the body.
func handleSetPreferences(prefs *preferences.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PreferencesRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p := prefs.Get(chi.URLParam(r, "player"))
		if req.MusicEnabled != nil {
			p.MusicEnabled = *req.MusicEnabled
		}
		if req.SoundEnabled != nil {
			p.SoundEnabled = *req.SoundEnabled
		}

		saved, err := prefs.Set(r.Context(), p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, toPreferencesResponse(saved))
	}
}

func handleToggleMusic(prefs *preferences.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := prefs.ToggleMusic(r.Context(), chi.URLParam(r, "player"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, toPreferencesResponse(p))
	}
}

func handleToggleSound(prefs *preferences.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := prefs.ToggleSound(r.Context(), chi.URLParam(r, "player"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, toPreferencesResponse(p))
	}
}
