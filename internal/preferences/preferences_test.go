package preferences

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/facequest/trainer/internal/database"
	"github.com/facequest/trainer/internal/migrations"
	"github.com/facequest/trainer/internal/store"
)

func setupService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	db, err := database.Open(context.Background(), database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	st := store.NewSQLiteStore(db)
	return New(st, slog.Default()), st
}

func TestDefaultsEnabled(t *testing.T) {
	s, _ := setupService(t)
	p := s.Get("")
	if p.Player != DefaultPlayer || !p.MusicEnabled || !p.SoundEnabled {
		t.Errorf("defaults = %+v", p)
	}
}

func TestTogglesPersistAcrossLoad(t *testing.T) {
	ctx := context.Background()
	s, st := setupService(t)

	p, err := s.ToggleMusic(ctx, "kid")
	if err != nil {
		t.Fatalf("toggle music: %v", err)
	}
	if p.MusicEnabled || !p.SoundEnabled {
		t.Fatalf("after music toggle = %+v", p)
	}
	if _, err := s.ToggleSound(ctx, "kid"); err != nil {
		t.Fatalf("toggle sound: %v", err)
	}

	fresh := New(st, slog.Default())
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := fresh.Get("kid")
	if got.MusicEnabled || got.SoundEnabled {
		t.Errorf("reloaded = %+v, want both off", got)
	}
	if other := fresh.Get("someone-else"); !other.MusicEnabled {
		t.Errorf("other player = %+v", other)
	}
}

type failingStore struct{}

func (failingStore) AllPreferences(context.Context) ([]store.Preferences, error) { return nil, nil }

func (failingStore) SavePreferences(context.Context, store.Preferences) error {
	return errors.New("disk full")
}

func TestFailedSaveKeepsPreviousValue(t *testing.T) {
	s := New(failingStore{}, slog.Default())
	p, err := s.ToggleMusic(context.Background(), "kid")
	if err == nil {
		t.Fatal("expected error")
	}
	if !p.MusicEnabled || !s.Get("kid").MusicEnabled {
		t.Errorf("value changed after failed save: %+v", p)
	}
}
