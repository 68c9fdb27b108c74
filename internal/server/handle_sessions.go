package server

import (
	"errors"
	"net/http"

	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/session"
)

type FrameRequest struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CaptureResponse reports whether the capture ran. For the puzzle quiz it
// reports whether the face answered correctly.
type CaptureResponse struct {
	Accepted bool `json:"accepted"`
}

type HintResponse struct {
	Visible bool `json:"visible"`
}

func handleCreateSession(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req session.Options
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := sessions.Create(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, sess.View())
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionFrom(r).View())
	}
}

func handleDeleteSession(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Delete(sessionFrom(r).ID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleFrame() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FrameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sessionFrom(r).PublishFrame(emotion.Frame{
			Image:  req.Image,
			Width:  req.Width,
			Height: req.Height,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCapture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accepted, err := sessionFrom(r).Capture()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CaptureResponse{Accepted: accepted})
	}
}

func handleHint() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visible, err := sessionFrom(r).ToggleHint()
		if err != nil {
			if errors.Is(err, session.ErrUnsupported) {
				writeError(w, http.StatusBadRequest, "this mode has no hint")
				return
			}
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, HintResponse{Visible: visible})
	}
}
