package game

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/score"
)

// Card is one tile of the matching board.
type Card struct {
	ID      int    `json:"id"`
	PairKey string `json:"pairKey"`
	Emotion string `json:"emotion"`
	Image   string `json:"image"`
	Label   string `json:"label"`
	FaceUp  bool   `json:"faceUp"`
	Matched bool   `json:"matched"`
}

type MemoryState string

const (
	MemoryIdle      MemoryState = "idle"
	MemoryOneFaceUp MemoryState = "one_face_up"
	MemoryChecking  MemoryState = "checking"
	MemoryWon       MemoryState = "won"
)

type MemoryConfig struct {
	// Emotions dealt as pairs; defaults to emotion.MemoryEmotions.
	Emotions      []string
	MatchDelay    time.Duration
	MismatchDelay time.Duration
	Rand          *rand.Rand
	Now           func() time.Time
}

type MemorySnapshot struct {
	Mode           emotion.Mode `json:"mode"`
	State          MemoryState  `json:"state"`
	Cards          []Card       `json:"cards"`
	MatchedPairs   int          `json:"matchedPairs"`
	TotalPairs     int          `json:"totalPairs"`
	Moves          int          `json:"moves"`
	ElapsedSeconds int          `json:"elapsedSeconds"`
}

// Memory is the card-matching game. At most two cards are face up and
// unmatched at any time.
type Memory struct {
	cfg    MemoryConfig
	notify Notifier
	logger *slog.Logger
	score  *score.Keeper

	mu      sync.Mutex
	state   MemoryState
	cards   []Card
	flipped []int
	matched int
	pairs   int
	timers  *timers
}

func NewMemory(cfg MemoryConfig, notify Notifier, logger *slog.Logger) *Memory {
	if len(cfg.Emotions) == 0 {
		cfg.Emotions = emotion.MemoryEmotions()
	}
	if cfg.MatchDelay <= 0 {
		cfg.MatchDelay = 600 * time.Millisecond
	}
	if cfg.MismatchDelay <= 0 {
		cfg.MismatchDelay = 1000 * time.Millisecond
	}
	if cfg.Rand == nil {
		cfg.Rand = newRand()
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Memory{
		cfg:    cfg,
		notify: orDiscard(notify),
		logger: logger.With("mode", string(emotion.ModeMemory)),
		score:  score.New(cfg.Now),
	}
	m.timers = newTimers(&m.mu)
	m.dealLocked()
	return m
}

// deal builds two cards per emotion, each showing a different picture of
// the same emotion, and shuffles them.
func deal(emotions []string, r *rand.Rand) []Card {
	cards := make([]Card, 0, 2*len(emotions))
	for _, e := range emotions {
		key := emotion.Key(e)
		info, _ := emotion.Lookup(key)
		for i := 0; i < 2; i++ {
			img := info.Emoji
			if i < len(info.Images) {
				img = info.Images[i]
			}
			cards = append(cards, Card{
				PairKey: key,
				Emotion: emotion.Display(key),
				Image:   img,
				Label:   emotion.Translate(key),
			})
		}
	}
	cards = shuffle(r, cards)
	for i := range cards {
		cards[i].ID = i + 1
	}
	return cards
}

func (m *Memory) dealLocked() {
	m.cards = deal(m.cfg.Emotions, m.cfg.Rand)
	m.flipped = m.flipped[:0]
	m.matched = 0
	m.pairs = distinctPairs(m.cards)
	m.state = MemoryIdle
	m.score.Reset()
}

func distinctPairs(cards []Card) int {
	keys := make(map[string]struct{})
	for _, c := range cards {
		keys[c.PairKey] = struct{}{}
	}
	return len(keys)
}

// Flip turns a card face up. The second flip of a pair schedules its
// resolution; further flips are refused until it resolves.
func (m *Memory) Flip(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case MemoryChecking:
		return ErrBusy
	case MemoryWon:
		return ErrInvalidState
	}
	idx := m.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("card %d: %w", id, ErrInvalidMove)
	}
	card := &m.cards[idx]
	if card.FaceUp || card.Matched {
		return fmt.Errorf("card %d is already face up: %w", id, ErrInvalidMove)
	}

	card.FaceUp = true
	m.flipped = append(m.flipped, idx)
	m.score.StartClock()

	if len(m.flipped) == 1 {
		m.state = MemoryOneFaceUp
		m.emitLocked()
		return nil
	}

	m.state = MemoryChecking
	a, b := m.flipped[0], m.flipped[1]
	delay := m.cfg.MismatchDelay
	if m.cards[a].PairKey == m.cards[b].PairKey {
		delay = m.cfg.MatchDelay
	}
	m.timers.after(delay, func() { m.resolveLocked(a, b) })
	m.emitLocked()
	return nil
}

func (m *Memory) resolveLocked(a, b int) {
	m.score.Move()
	if m.cards[a].PairKey == m.cards[b].PairKey {
		m.cards[a].Matched = true
		m.cards[b].Matched = true
		m.matched++
	} else {
		m.cards[a].FaceUp = false
		m.cards[b].FaceUp = false
	}
	m.flipped = m.flipped[:0]

	if m.matched == m.pairs {
		m.state = MemoryWon
		m.score.StopClock()
		m.logger.Info("memory board cleared", "moves", m.score.Moves(), "elapsed", m.score.Elapsed())
	} else {
		m.state = MemoryIdle
	}
	m.emitLocked()
}

func (m *Memory) indexOf(id int) int {
	for i, c := range m.cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Reset deals a fresh board and cancels any pending resolution.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers.cancelAll()
	m.dealLocked()
	m.emitLocked()
}

func (m *Memory) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers.cancelAll()
	m.score.StopClock()
}

func (m *Memory) Mode() emotion.Mode { return emotion.ModeMemory }

// Tally reports matched pairs as the score.
func (m *Memory) Tally() score.Tally {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.score.Tally()
	t.Score = m.matched
	return t
}

func (m *Memory) Snapshot() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Memory) State() MemoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Memory) snapshotLocked() MemorySnapshot {
	t := m.score.Tally()
	return MemorySnapshot{
		Mode:           emotion.ModeMemory,
		State:          m.state,
		Cards:          append([]Card(nil), m.cards...),
		MatchedPairs:   m.matched,
		TotalPairs:     m.pairs,
		Moves:          t.Moves,
		ElapsedSeconds: t.ElapsedSeconds,
	}
}

func (m *Memory) emitLocked() {
	m.notify.Publish(Event{Type: EventState, Mode: emotion.ModeMemory, Snapshot: m.snapshotLocked()})
}
