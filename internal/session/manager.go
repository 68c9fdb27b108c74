package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/facequest/trainer/internal/capture"
	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/game"
	"github.com/facequest/trainer/internal/store"
)

// Config carries the engine timings.
type Config struct {
	PracticeCadence  time.Duration
	ChallengeCadence time.Duration
	CelebrationDwell time.Duration
	MatchDelay       time.Duration
	MismatchDelay    time.Duration
	PuzzlePause      time.Duration
	IdleTimeout      time.Duration
}

// Supplier hands out mimic challenges and scenarios.
type Supplier interface {
	game.ChallengeSource
	game.ScenarioSource
}

// Recorder stores finished sessions.
type Recorder interface {
	RecordResult(ctx context.Context, r store.Result) (store.Result, error)
}

// Publisher fans session events out to subscribers.
type Publisher interface {
	Publish(sessionID string, e game.Event)
}

// Manager creates sessions and ends them when deleted or idle for longer
// than the configured timeout.
type Manager struct {
	cfg      Config
	clf      game.Classifier
	supplier Supplier
	rec      Recorder
	pub      Publisher
	logger   *slog.Logger
	sessions *cache.Cache
}

func NewManager(cfg Config, clf game.Classifier, supplier Supplier, rec Recorder, pub Publisher, logger *slog.Logger) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	m := &Manager{
		cfg:      cfg,
		clf:      clf,
		supplier: supplier,
		rec:      rec,
		pub:      pub,
		logger:   logger,
		sessions: cache.New(cfg.IdleTimeout, cfg.IdleTimeout/2),
	}
	m.sessions.OnEvicted(func(id string, v any) {
		if s, ok := v.(*Session); ok {
			m.finish(s)
		}
	})
	return m
}

// Create builds and starts a session for opts.Mode.
func (m *Manager) Create(ctx context.Context, opts Options) (*Session, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q: %w", opts.Mode, ErrUnsupported)
	}
	if opts.Difficulty != "" {
		if _, ok := game.LevelFor(opts.Difficulty); !ok {
			return nil, fmt.Errorf("difficulty %q: %w", opts.Difficulty, game.ErrInvalidMove)
		}
	}

	s := &Session{
		ID:        uuid.NewString(),
		Mode:      opts.Mode,
		CreatedAt: time.Now(),
		frames:    &capture.Slot{},
	}
	notify := m.notifier(s.ID)
	logger := m.logger.With("session", s.ID)

	switch opts.Mode {
	case emotion.ModePractice:
		p := game.NewPractice(m.clf, s.frames, m.cfg.PracticeCadence, notify, logger)
		p.Start()
		s.game = p
	case emotion.ModeMimic:
		d := game.MimicDescriptor(m.supplier, m.cfg.ChallengeCadence, m.cfg.CelebrationDwell)
		c := game.NewChallenge(d, m.clf, s.frames, notify, logger)
		c.Start(ctx)
		s.game = c
	case emotion.ModeScenario:
		d := game.ScenarioDescriptor(m.supplier, m.cfg.ChallengeCadence, m.cfg.CelebrationDwell)
		c := game.NewChallenge(d, m.clf, s.frames, notify, logger)
		c.Start(ctx)
		s.game = c
	case emotion.ModeMemory:
		s.game = game.NewMemory(game.MemoryConfig{
			MatchDelay:    m.cfg.MatchDelay,
			MismatchDelay: m.cfg.MismatchDelay,
		}, notify, logger)
	case emotion.ModePuzzle:
		cfg := game.PuzzleConfig{Pause: m.cfg.PuzzlePause}
		if opts.CameraAnswer {
			cfg.Classifier = m.clf
			cfg.Frames = s.frames
		}
		p := game.NewPuzzle(cfg, notify, logger)
		if opts.Difficulty != "" {
			if err := p.SelectDifficulty(opts.Difficulty); err != nil {
				p.Stop()
				return nil, err
			}
		}
		s.game = p
	}

	m.sessions.Set(s.ID, s, cache.DefaultExpiration)
	m.logger.Info("session started", "session", s.ID, "mode", string(s.Mode))
	return s, nil
}

func (m *Manager) notifier(id string) game.Notifier {
	if m.pub == nil {
		return nil
	}
	return game.NotifierFunc(func(e game.Event) { m.pub.Publish(id, e) })
}

// Get returns a live session and pushes its idle deadline back.
func (m *Manager) Get(id string) (*Session, error) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	s := v.(*Session)
	// Replace fails once the session has been deleted or evicted, so an
	// ended session is never put back.
	if err := m.sessions.Replace(id, s, cache.DefaultExpiration); err != nil {
		return nil, ErrNotFound
	}
	return s, nil
}

// Touch pushes the idle deadline of a live session back.
func (m *Manager) Touch(id string) error {
	_, err := m.Get(id)
	return err
}

// Delete ends a session and records its result.
func (m *Manager) Delete(id string) error {
	if _, ok := m.sessions.Get(id); !ok {
		return ErrNotFound
	}
	m.sessions.Delete(id)
	return nil
}

func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}

// Close ends every live session.
func (m *Manager) Close() {
	for id := range m.sessions.Items() {
		m.sessions.Delete(id)
	}
}

func (m *Manager) finish(s *Session) {
	s.game.Stop()
	tally := s.game.Tally()
	m.logger.Info("session ended", "session", s.ID, "mode", string(s.Mode), "score", tally.Score, "moves", tally.Moves)

	if m.pub != nil {
		m.pub.Publish(s.ID, game.Event{Type: game.EventEnded, Mode: s.Mode, Snapshot: s.game.Snapshot()})
	}
	if m.rec == nil || s.Mode == emotion.ModePractice {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := m.rec.RecordResult(ctx, store.Result{
		SessionID:      s.ID,
		Mode:           string(s.Mode),
		Difficulty:     s.difficulty(),
		Score:          tally.Score,
		Moves:          tally.Moves,
		ElapsedSeconds: tally.ElapsedSeconds,
		EndedAt:        time.Now(),
	})
	if err != nil {
		m.logger.Error("recording session result", "session", s.ID, "error", err)
	}
}
