// Package store persists player preferences and finished session results
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

// Preferences are the per-player audio toggles.
type Preferences struct {
	Player       string    `json:"player"`
	MusicEnabled bool      `json:"musicEnabled"`
	SoundEnabled bool      `json:"soundEnabled"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Result is the final tally of one game session.
type Result struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"sessionId"`
	Mode           string    `json:"mode"`
	Difficulty     string    `json:"difficulty,omitempty"`
	Score          int       `json:"score"`
	Moves          int       `json:"moves"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	EndedAt        time.Time `json:"endedAt"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AllPreferences returns every stored player's preferences.
func (s *SQLiteStore) AllPreferences(ctx context.Context) ([]Preferences, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player, music_enabled, sound_enabled, updated_at
		FROM preferences
		ORDER BY player
	`)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	var out []Preferences
	for rows.Next() {
		p, err := scanPreferences(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, player string) (Preferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT player, music_enabled, sound_enabled, updated_at
		FROM preferences
		WHERE player = ?
	`, player)
	p, err := scanPreferences(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) SavePreferences(ctx context.Context, p Preferences) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (player, music_enabled, sound_enabled, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (player) DO UPDATE SET
			music_enabled = excluded.music_enabled,
			sound_enabled = excluded.sound_enabled,
			updated_at = excluded.updated_at
	`, p.Player, boolInt(p.MusicEnabled), boolInt(p.SoundEnabled), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving preferences for %q: %w", p.Player, err)
	}
	return nil
}

// RecordResult stores a finished session. Recording the same session twice
// keeps the first result.
func (s *SQLiteStore) RecordResult(ctx context.Context, r Result) (Result, error) {
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO session_results (session_id, mode, difficulty, score, moves, elapsed_seconds, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id
	`, r.SessionID, r.Mode, r.Difficulty, r.Score, r.Moves, r.ElapsedSeconds, formatTime(r.EndedAt)).Scan(&r.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return s.resultBySession(ctx, r.SessionID)
	}
	if err != nil {
		return Result{}, fmt.Errorf("recording result: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) resultBySession(ctx context.Context, sessionID string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, mode, difficulty, score, moves, elapsed_seconds, ended_at
		FROM session_results
		WHERE session_id = ?
	`, sessionID)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, ErrNotFound
	}
	return r, err
}

// ListResults returns the most recent results, newest first. An empty mode
// matches every mode.
func (s *SQLiteStore) ListResults(ctx context.Context, mode string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, mode, difficulty, score, moves, elapsed_seconds, ended_at
		FROM session_results
		WHERE ? = '' OR mode = ?
		ORDER BY ended_at DESC, id DESC
		LIMIT ?
	`, mode, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreferences(row scanner) (Preferences, error) {
	var p Preferences
	var updated string
	if err := row.Scan(&p.Player, &p.MusicEnabled, &p.SoundEnabled, &updated); err != nil {
		return Preferences{}, err
	}
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func scanResult(row scanner) (Result, error) {
	var r Result
	var ended string
	if err := row.Scan(&r.ID, &r.SessionID, &r.Mode, &r.Difficulty, &r.Score, &r.Moves, &r.ElapsedSeconds, &ended); err != nil {
		return Result{}, err
	}
	r.EndedAt = parseTime(ended)
	return r, nil
}

// Fixed-width so that timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
