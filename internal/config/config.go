package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBDir     string     `env:"DB_DIR" envDefault:"data"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir    string     `env:"SPA_DIR" envDefault:"../web/dist"`
	PublicURL string     `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	ClassifierURL         string        `env:"CLASSIFIER_URL" envDefault:"http://localhost:5000"`
	ClassifierTimeout     time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"8s"`
	ClassifierMaxInFlight int64         `env:"CLASSIFIER_MAX_INFLIGHT" envDefault:"16"`

	PracticeCadence    time.Duration `env:"PRACTICE_CADENCE" envDefault:"1000ms"`
	ChallengeCadence   time.Duration `env:"CHALLENGE_CADENCE" envDefault:"2000ms"`
	CelebrationDwell   time.Duration `env:"CELEBRATION_DWELL" envDefault:"3000ms"`
	MatchDelay         time.Duration `env:"MATCH_DELAY" envDefault:"600ms"`
	MismatchDelay      time.Duration `env:"MISMATCH_DELAY" envDefault:"1000ms"`
	PuzzlePause        time.Duration `env:"PUZZLE_PAUSE" envDefault:"2000ms"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.ChallengeCadence <= 0 || cfg.PracticeCadence <= 0 {
		return nil, errors.New("capture cadences must be positive")
	}
	return &cfg, nil
}
