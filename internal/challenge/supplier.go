// Package challenge supplies the next target emotion or story, preferring the
// remote service and falling back to a local pool.
package challenge

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/inference"
)

// Source is the remote side of the supplier. *inference.Client implements it.
type Source interface {
	NextChallenge(ctx context.Context) (inference.ChallengeDTO, error)
	NextScenario(ctx context.Context) (inference.ScenarioDTO, error)
}

type Supplier struct {
	src       Source
	logger    *slog.Logger
	challenge []emotion.Challenge
	scenarios []emotion.Scenario

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Supplier)

// WithRand replaces the random source used for fallback picks.
func WithRand(r *rand.Rand) Option {
	return func(s *Supplier) { s.rng = r }
}

// WithPools replaces the local fallback pools. Empty pools are ignored.
func WithPools(challenges []emotion.Challenge, scenarios []emotion.Scenario) Option {
	return func(s *Supplier) {
		if len(challenges) > 0 {
			s.challenge = challenges
		}
		if len(scenarios) > 0 {
			s.scenarios = scenarios
		}
	}
}

// New returns a supplier. With a nil src every pick comes from the local
// pool and no error is reported.
func New(src Source, logger *slog.Logger, opts ...Option) *Supplier {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supplier{
		src:       src,
		logger:    logger,
		challenge: emotion.FallbackChallenges(),
		scenarios: emotion.FallbackScenarios(),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NextChallenge always returns a usable challenge. A non-nil error reports
// that the remote fetch failed and the challenge came from the local pool.
func (s *Supplier) NextChallenge(ctx context.Context) (emotion.Challenge, error) {
	if s.src == nil {
		return s.randomChallenge(), nil
	}

	dto, err := s.src.NextChallenge(ctx)
	if err != nil {
		s.logger.Warn("challenge fetch failed, using local pool", "error", err)
		return s.randomChallenge(), err
	}

	c, ok := emotion.NewChallenge(dto.Emotion)
	if !ok {
		s.logger.Debug("no local asset for remote challenge", "emotion", dto.Emotion)
		return s.randomChallenge(), nil
	}
	if t := strings.TrimSpace(dto.Vietnamese); t != "" {
		c.Translation = t
	}
	return c, nil
}

// NextScenario always returns a usable scenario, with the same error
// convention as NextChallenge.
func (s *Supplier) NextScenario(ctx context.Context) (emotion.Scenario, error) {
	if s.src == nil {
		return s.randomScenario(), nil
	}

	dto, err := s.src.NextScenario(ctx)
	if err != nil {
		s.logger.Warn("scenario fetch failed, using local pool", "error", err)
		return s.randomScenario(), err
	}

	if _, ok := emotion.Lookup(dto.CorrectEmotion); !ok {
		s.logger.Debug("no local asset for remote scenario", "emotion", dto.CorrectEmotion)
		return s.randomScenario(), nil
	}
	return emotion.Scenario{
		ID:           dto.ID,
		Narrative:    dto.Story,
		Target:       emotion.Display(dto.CorrectEmotion),
		Illustration: dto.Illustration,
		HintEmoji:    dto.Emoji,
	}, nil
}

func (s *Supplier) randomChallenge() emotion.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge[s.rng.IntN(len(s.challenge))]
}

func (s *Supplier) randomScenario() emotion.Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenarios[s.rng.IntN(len(s.scenarios))]
}
