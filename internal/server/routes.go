package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/facequest/trainer/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	broker := deps.Broker
	if broker == nil {
		broker = NewBroker()
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Emotion Trainer API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())
	r.Get("/qr.png", handleQR(deps.PublicURL))

	// Same shapes as the classifier backend so the browser can use either.
	r.Get("/get-emotion-challenge", handleEmotionChallenge())
	r.Get("/get-scenario", handleScenario())

	r.Post("/api/sessions", handleCreateSession(deps.Sessions))

	// Session routes; {id} is resolved by sessionMiddleware.
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Use(sessionMiddleware(deps.Sessions))
		r.Get("/", handleGetSession())
		r.Delete("/", handleDeleteSession(deps.Sessions))
		r.Post("/frames", handleFrame())
		r.Post("/capture", handleCapture())
		r.Post("/hint", handleHint())
		r.Get("/events", handleEvents(logger, broker))

		r.Post("/cards/{cardID}/flip", handleFlip())
		r.Post("/reset", handleReset())

		r.Post("/puzzle/difficulty", handleSelectDifficulty())
		r.Post("/puzzle/swap", handleSwap())
		r.Post("/puzzle/answer", handleAnswer())
		r.Post("/puzzle/{action}", handlePuzzleAction())
	})

	r.With(sessionMiddleware(deps.Sessions)).Get("/ws/sessions/{id}", handleSessionWS(logger, deps.Sessions, broker))

	r.Route("/api/preferences/{player}", func(r chi.Router) {
		r.Get("/", handleGetPreferences(deps.Preferences))
		r.Post("/", handleSetPreferences(deps.Preferences))
		r.Post("/music/toggle", handleToggleMusic(deps.Preferences))
		r.Post("/sound/toggle", handleToggleSound(deps.Preferences))
	})

	r.Get("/api/results", handleListResults(deps.Results))

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
