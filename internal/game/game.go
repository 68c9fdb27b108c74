// Package game holds the per-screen state machines: the capture-driven
// challenge and practice loops, card matching, and the sliding puzzle.
//
// Every machine serializes its transitions behind its own mutex. Calls to
// the classifier and the challenge supplier happen outside that lock.
package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/evaluate"
	"github.com/facequest/trainer/internal/inference"
	"github.com/facequest/trainer/internal/score"
)

var (
	// ErrBusy is returned when a move arrives while a delayed transition
	// is still pending.
	ErrBusy = errors.New("game: busy")
	// ErrInvalidState is returned when an operation is not allowed in the
	// machine's current state.
	ErrInvalidState = errors.New("game: invalid state")
	// ErrInvalidMove is returned for moves that reference unknown or
	// unavailable cards or pieces.
	ErrInvalidMove = errors.New("game: invalid move")
)

// Game is what every machine exposes to the session layer.
type Game interface {
	Mode() emotion.Mode
	Snapshot() any
	Tally() score.Tally
	Stop()
}

// Classifier is the remote emotion classifier.
type Classifier interface {
	Classify(ctx context.Context, frame emotion.Frame, req inference.Request) (emotion.Prediction, error)
}

// EventType names a pushed event.
type EventType string

const (
	EventState     EventType = "state"
	EventVerdict   EventType = "verdict"
	EventDetection EventType = "detection"
	EventNotice    EventType = "notice"
	EventEnded     EventType = "ended"
)

// Event is pushed to the player's screen whenever something visible changes.
type Event struct {
	Type      EventType         `json:"type"`
	Mode      emotion.Mode      `json:"mode"`
	Verdict   *evaluate.Verdict `json:"verdict,omitempty"`
	Detection *Detection        `json:"detection,omitempty"`
	Message   string            `json:"message,omitempty"`
	Snapshot  any               `json:"snapshot,omitempty"`
}

// Notifier receives events. Publish must not block.
type Notifier interface {
	Publish(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Publish(e Event) { f(e) }

var discard = NotifierFunc(func(Event) {})

func orDiscard(n Notifier) Notifier {
	if n == nil {
		return discard
	}
	return n
}

func newRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>32|1))
}

// shuffle returns a shuffled copy of s.
func shuffle[T any](r *rand.Rand, s []T) []T {
	out := append([]T(nil), s...)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
