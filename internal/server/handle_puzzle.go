package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facequest/trainer/internal/game"
	"github.com/facequest/trainer/internal/session"
)

type DifficultyRequest struct {
	Difficulty game.Difficulty `json:"difficulty"`
}

type SwapRequest struct {
	PieceID int `json:"pieceId"`
	Target  int `json:"target"`
}

type AnswerRequest struct {
	Emotion string `json:"emotion"`
}

type AnswerResponse struct {
	Correct bool         `json:"correct"`
	Session session.View `json:"session"`
}

func handleSelectDifficulty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DifficultyRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if _, ok := game.LevelFor(req.Difficulty); !ok {
			writeError(w, http.StatusBadRequest, "difficulty must be easy, medium or hard")
			return
		}

		sess := sessionFrom(r)
		if err := sess.SelectDifficulty(req.Difficulty); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.View())
	}
}

func handleSwap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SwapRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess := sessionFrom(r)
		if err := sess.Swap(req.PieceID, req.Target); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.View())
	}
}

func handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(r, &req); err != nil || req.Emotion == "" {
			writeError(w, http.StatusBadRequest, "emotion is required")
			return
		}

		sess := sessionFrom(r)
		correct, err := sess.Answer(req.Emotion)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AnswerResponse{Correct: correct, Session: sess.View()})
	}
}

func handlePuzzleAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := chi.URLParam(r, "action")
		switch action {
		case "continue", "replay", "choose":
		default:
			writeError(w, http.StatusNotFound, "unknown puzzle action")
			return
		}

		sess := sessionFrom(r)
		if err := sess.PuzzleAction(action); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.View())
	}
}
