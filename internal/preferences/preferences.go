// Package preferences keeps the background-music and sound-effect toggles.
// Values are loaded once at startup and written through on every change.
package preferences

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/facequest/trainer/internal/store"
)

// DefaultPlayer is used when a request names no player.
const DefaultPlayer = "default"

type Store interface {
	AllPreferences(ctx context.Context) ([]store.Preferences, error)
	SavePreferences(ctx context.Context, p store.Preferences) error
}

type Service struct {
	st     Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	prefs map[string]store.Preferences
}

func New(st Store, logger *slog.Logger) *Service {
	return &Service{
		st:     st,
		logger: logger,
		now:    time.Now,
		prefs:  make(map[string]store.Preferences),
	}
}

// Load reads every stored player's preferences into memory.
func (s *Service) Load(ctx context.Context) error {
	all, err := s.st.AllPreferences(ctx)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range all {
		s.prefs[p.Player] = p
	}
	s.logger.Info("preferences loaded", "players", len(all))
	return nil
}

// Get returns a player's preferences. Unknown players have everything on.
func (s *Service) Get(player string) store.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(player)
}

func (s *Service) getLocked(player string) store.Preferences {
	player = normalize(player)
	if p, ok := s.prefs[player]; ok {
		return p
	}
	return store.Preferences{Player: player, MusicEnabled: true, SoundEnabled: true}
}

// Set replaces a player's preferences.
func (s *Service) Set(ctx context.Context, p store.Preferences) (store.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, p)
}

func (s *Service) ToggleMusic(ctx context.Context, player string) (store.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getLocked(player)
	p.MusicEnabled = !p.MusicEnabled
	return s.saveLocked(ctx, p)
}

func (s *Service) ToggleSound(ctx context.Context, player string) (store.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getLocked(player)
	p.SoundEnabled = !p.SoundEnabled
	return s.saveLocked(ctx, p)
}

// saveLocked persists p and only then updates memory, so a failed write
// leaves the previous value visible.
func (s *Service) saveLocked(ctx context.Context, p store.Preferences) (store.Preferences, error) {
	p.Player = normalize(p.Player)
	p.UpdatedAt = s.now()
	if err := s.st.SavePreferences(ctx, p); err != nil {
		return s.getLocked(p.Player), err
	}
	s.prefs[p.Player] = p
	return p, nil
}

func normalize(player string) string {
	if player == "" {
		return DefaultPlayer
	}
	return player
}
