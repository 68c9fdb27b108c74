package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/facequest/trainer/internal/inference"
	"github.com/facequest/trainer/internal/session"
	"github.com/facequest/trainer/internal/store"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus is one dependency's entry in the /healthz body.
type HealthStatus struct {
	Status string `json:"status" enum:"ok,error"`
}

type SessionParams struct {
	ID string `path:"id"`
}

type FlipParams struct {
	ID     string `path:"id"`
	CardID int    `path:"cardID"`
}

type PlayerParams struct {
	Player string `path:"player"`
}

type ResultsParams struct {
	Mode  string `query:"mode" enum:"mimic,scenario,memory,puzzle"`
	Limit int    `query:"limit" minimum:"1" maximum:"100"`
}

type QRParams struct {
	Size int `query:"size" minimum:"64" maximum:"1024"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Emotion Trainer API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the emotion recognition trainer: camera games, puzzles and preferences.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health of the database and the emotion classifier.")
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /qr.png
	getQR, _ := r.NewOperationContext(http.MethodGet, "/qr.png")
	getQR.SetSummary("Join QR code")
	getQR.SetDescription("PNG QR code of the public URL.")
	getQR.AddReqStructure(QRParams{})
	getQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("image/png"))
	getQR.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getQR)

	// GET /get-emotion-challenge
	getChallenge, _ := r.NewOperationContext(http.MethodGet, "/get-emotion-challenge")
	getChallenge.SetSummary("Random mimic challenge")
	getChallenge.SetDescription("Returns a random emotion to imitate, in the classifier backend's shape.")
	getChallenge.AddRespStructure(inference.ChallengeDTO{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getChallenge)

	// GET /get-scenario
	getScenario, _ := r.NewOperationContext(http.MethodGet, "/get-scenario")
	getScenario.SetSummary("Random scenario")
	getScenario.SetDescription("Returns a random short story and the emotion it should evoke.")
	getScenario.AddRespStructure(inference.ScenarioDTO{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getScenario)

	// POST /api/sessions
	createSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	createSession.SetSummary("Start a session")
	createSession.SetDescription("Starts a game session for one screen. Camera modes begin capturing at once.")
	createSession.AddReqStructure(session.Options{})
	createSession.AddRespStructure(session.View{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createSession)

	// GET /api/sessions/{id}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns the session and a snapshot of its game state.")
	getSession.AddReqStructure(SessionParams{})
	getSession.AddRespStructure(session.View{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// DELETE /api/sessions/{id}
	deleteSession, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{id}")
	deleteSession.SetSummary("End session")
	deleteSession.SetDescription("Stops the session, cancels pending timers and records the result.")
	deleteSession.AddReqStructure(SessionParams{})
	deleteSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteSession)

	// POST /api/sessions/{id}/frames
	postFrame, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/frames")
	postFrame.SetSummary("Publish camera frame")
	postFrame.SetDescription("Replaces the latest camera frame. Only the newest frame is ever classified.")
	postFrame.AddReqStructure(struct {
		SessionParams
		FrameRequest
	}{})
	postFrame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	postFrame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postFrame)

	// POST /api/sessions/{id}/capture
	postCapture, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/capture")
	postCapture.SetSummary("Capture now")
	postCapture.SetDescription("Triggers a capture immediately. Dropped when one is already running.")
	postCapture.AddReqStructure(SessionParams{})
	postCapture.AddRespStructure(CaptureResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postCapture.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postCapture.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postCapture)

	// POST /api/sessions/{id}/hint
	postHint, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/hint")
	postHint.SetSummary("Toggle hint")
	postHint.SetDescription("Shows or hides the scenario or puzzle hint.")
	postHint.AddReqStructure(SessionParams{})
	postHint.AddRespStructure(HintResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postHint)

	// GET /api/sessions/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events: state, verdict, detection, notice and ended.")
	getEvents.AddReqStructure(SessionParams{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /ws/sessions/{id}
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws/sessions/{id}")
	getWS.SetSummary("Session WebSocket")
	getWS.SetDescription("Frames and capture requests in, session events out.")
	getWS.AddReqStructure(SessionParams{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// POST /api/sessions/{id}/cards/{cardID}/flip
	postFlip, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/cards/{cardID}/flip")
	postFlip.SetSummary("Flip card")
	postFlip.SetDescription("Turns a memory card face up. Refused while a pair is being checked.")
	postFlip.AddReqStructure(FlipParams{})
	postFlip.AddRespStructure(session.View{}, openapi.WithHTTPStatus(http.StatusOK))
	postFlip.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postFlip.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postFlip)

	// POST /api/sessions/{id}/reset
	postReset, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/reset")
	postReset.SetSummary("New deck")
	postReset.SetDescription("Deals a fresh memory deck and resets moves and clock.")
	postReset.AddReqStructure(SessionParams{})
	postReset.AddRespStructure(session.View{}, openapi.WithHTTPStatus(http.StatusOK))
	postReset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postReset)

	// POST /api/sessions/{id}/puzzle/difficulty
	postDifficulty, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/puzzle/difficulty")
	postDifficulty.SetSummary("Select difficulty")
	postDifficulty.SetDescription("Starts a puzzle round at easy (2x2), medium (3x3) or hard (4x4).")
	postDifficulty.AddReqStructure(struct {
		SessionParams
		DifficultyRequest
	}{})
	postDifficulty.AddRespStructure(session.View{}, openapi.WithHTTPStatus(http.StatusOK))
	postDifficulty.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postDifficulty.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postDifficulty)

	// POST /api/sessions/{id}/puzzle/swap
	postSwap, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/puzzle/swap")
	postSwap.SetSummary("Swap pieces")
	postSwap.SetDescription("Drops a piece on a grid position, swapping it with the occupant.")
	postSwap.AddReqStructure(struct {
		SessionParams
		SwapRequest
	}{})
	postSwap.AddRespStructure(session.View{}, openapi.WithHTTPStatus(http.StatusOK))
	postSwap.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSwap.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSwap)

	// POST /api/sessions/{id}/puzzle/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/puzzle/answer")
	postAnswer.SetSummary("Answer quiz")
	postAnswer.SetDescription("Names the emotion shown in the assembled picture.")
	postAnswer.AddReqStructure(struct {
		SessionParams
		AnswerRequest
	}{})
	postAnswer.AddRespStructure(AnswerResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// POST /api/sessions/{id}/puzzle/{action}
	for _, action := range []string{"continue", "replay", "choose"} {
		op, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/puzzle/"+action)
		op.SetSummary("Puzzle " + action)
		op.SetDescription("Complete-screen option: continue keeps the score, replay resets it, choose returns to difficulty selection.")
		op.AddReqStructure(SessionParams{})
		op.AddRespStructure(session.View{}, openapi.WithHTTPStatus(http.StatusOK))
		op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
		_ = r.AddOperation(op)
	}

	// GET /api/preferences/{player}
	getPrefs, _ := r.NewOperationContext(http.MethodGet, "/api/preferences/{player}")
	getPrefs.SetSummary("Get preferences")
	getPrefs.SetDescription("Music and sound toggles. Unknown players have both enabled.")
	getPrefs.AddReqStructure(PlayerParams{})
	getPrefs.AddRespStructure(PreferencesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getPrefs)

	// POST /api/preferences/{player}
	postPrefs, _ := r.NewOperationContext(http.MethodPost, "/api/preferences/{player}")
	postPrefs.SetSummary("Update preferences")
	postPrefs.SetDescription("Updates the fields present in the body and saves them.")
	postPrefs.AddReqStructure(struct {
		PlayerParams
		PreferencesRequest
	}{})
	postPrefs.AddRespStructure(PreferencesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPrefs.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postPrefs)

	for _, toggle := range []string{"music", "sound"} {
		op, _ := r.NewOperationContext(http.MethodPost, "/api/preferences/{player}/"+toggle+"/toggle")
		op.SetSummary("Toggle " + toggle)
		op.AddReqStructure(PlayerParams{})
		op.AddRespStructure(PreferencesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
		_ = r.AddOperation(op)
	}

	// GET /api/results
	getResults, _ := r.NewOperationContext(http.MethodGet, "/api/results")
	getResults.SetSummary("Recent results")
	getResults.SetDescription("Finished sessions, newest first. Practice sessions are not recorded.")
	getResults.AddReqStructure(ResultsParams{})
	getResults.AddRespStructure([]store.Result{}, openapi.WithHTTPStatus(http.StatusOK))
	getResults.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getResults)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
