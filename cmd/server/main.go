package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/facequest/trainer/internal/challenge"
	"github.com/facequest/trainer/internal/config"
	"github.com/facequest/trainer/internal/database"
	"github.com/facequest/trainer/internal/handler/health"
	"github.com/facequest/trainer/internal/inference"
	"github.com/facequest/trainer/internal/migrations"
	"github.com/facequest/trainer/internal/preferences"
	"github.com/facequest/trainer/internal/server"
	"github.com/facequest/trainer/internal/session"
	"github.com/facequest/trainer/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.OpenDir(ctx, cfg.DBDir)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	version, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "dir", cfg.DBDir, "schema_version", version)

	st := store.NewSQLiteStore(db)

	prefs := preferences.New(st, logger)
	if err := prefs.Load(ctx); err != nil {
		return err
	}

	// --- Classifier ---
	clf, err := inference.NewClient(inference.Config{
		BaseURL:     cfg.ClassifierURL,
		Timeout:     cfg.ClassifierTimeout,
		MaxInFlight: cfg.ClassifierMaxInFlight,
	})
	if err != nil {
		return fmt.Errorf("creating classifier client: %w", err)
	}
	if err := clf.Ping(ctx); err != nil {
		// Games fall back to local prompts and report the outage on screen.
		logger.Warn("classifier unreachable at startup", "url", cfg.ClassifierURL, "error", err)
	}

	// --- Sessions ---
	broker := server.NewBroker()
	sessions := session.NewManager(session.Config{
		PracticeCadence:  cfg.PracticeCadence,
		ChallengeCadence: cfg.ChallengeCadence,
		CelebrationDwell: cfg.CelebrationDwell,
		MatchDelay:       cfg.MatchDelay,
		MismatchDelay:    cfg.MismatchDelay,
		PuzzlePause:      cfg.PuzzlePause,
		IdleTimeout:      cfg.SessionIdleTimeout,
	}, clf, challenge.New(clf, logger), st, broker, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Sessions:    sessions,
		Broker:      broker,
		Preferences: prefs,
		Results:     st,
		Checks: map[string]health.Checker{
			"sqlite":     health.CheckerFunc(st.Ping),
			"classifier": health.CheckerFunc(clf.Ping),
		},
		PublicURL: cfg.PublicURL,
		SPADir:    cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		err := srv.Shutdown(context.Background())
		// Record every open game before the database closes.
		sessions.Close()
		return err
	})

	return g.Wait()
}
