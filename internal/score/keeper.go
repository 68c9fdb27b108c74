// Package score keeps the per-session tally: score, moves and play time.
package score

import (
	"sync"
	"time"
)

// Tally is a point-in-time copy of a keeper.
type Tally struct {
	Score          int `json:"score"`
	Moves          int `json:"moves"`
	ElapsedSeconds int `json:"elapsedSeconds"`
}

// Keeper is safe for concurrent use.
type Keeper struct {
	now func() time.Time

	mu        sync.Mutex
	score     int
	moves     int
	running   bool
	startedAt time.Time
	banked    time.Duration
}

// New returns a keeper using now as its clock; nil means time.Now.
func New(now func() time.Time) *Keeper {
	if now == nil {
		now = time.Now
	}
	return &Keeper{now: now}
}

// Add raises the score by points. Non-positive values are ignored so the
// score can only grow.
func (k *Keeper) Add(points int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if points > 0 {
		k.score += points
	}
	return k.score
}

// Move counts one move and returns the new total.
func (k *Keeper) Move() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.moves++
	return k.moves
}

func (k *Keeper) Score() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.score
}

func (k *Keeper) Moves() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.moves
}

// StartClock starts the elapsed-time clock. Starting a running clock is a no-op.
func (k *Keeper) StartClock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		return
	}
	k.running = true
	k.startedAt = k.now()
}

// StopClock freezes the elapsed time.
func (k *Keeper) StopClock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.running {
		return
	}
	k.banked += k.now().Sub(k.startedAt)
	k.running = false
}

func (k *Keeper) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// Elapsed returns whole seconds on the clock.
func (k *Keeper) Elapsed() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.elapsedLocked()
}

func (k *Keeper) elapsedLocked() int {
	d := k.banked
	if k.running {
		d += k.now().Sub(k.startedAt)
	}
	return int(d / time.Second)
}

// NewRound clears moves and the clock but keeps the score.
func (k *Keeper) NewRound() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.moves = 0
	k.running = false
	k.banked = 0
}

// Reset clears everything.
func (k *Keeper) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.score = 0
	k.moves = 0
	k.running = false
	k.banked = 0
}

func (k *Keeper) Tally() Tally {
	k.mu.Lock()
	defer k.mu.Unlock()
	return Tally{Score: k.score, Moves: k.moves, ElapsedSeconds: k.elapsedLocked()}
}
