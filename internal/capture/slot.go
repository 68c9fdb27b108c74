// Package capture schedules frame captures for a session and guarantees that
// at most one capture is being evaluated at a time.
package capture

import (
	"sync"
	"sync/atomic"

	"github.com/facequest/trainer/internal/emotion"
)

// FrameSource yields the most recent camera frame.
type FrameSource interface {
	Latest() emotion.Frame
}

// Slot is a single-frame mailbox: each Publish overwrites the previous frame.
// Frames are not consumed by reading, since the camera image stays valid
// until the next one arrives.
type Slot struct {
	mu    sync.Mutex
	frame emotion.Frame
	seq   uint64

	published   atomic.Uint64
	overwritten atomic.Uint64
	read        atomic.Uint64
	lastReadSeq uint64
}

// Publish replaces the held frame. Never blocks.
func (s *Slot) Publish(f emotion.Frame) {
	s.mu.Lock()
	if s.seq > s.lastReadSeq {
		s.overwritten.Add(1)
	}
	s.frame = f
	s.seq++
	s.mu.Unlock()
	s.published.Add(1)
}

// Latest returns the held frame; the zero frame when none was published.
func (s *Slot) Latest() emotion.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReadSeq = s.seq
	s.read.Add(1)
	return s.frame
}

// Clear drops the held frame, e.g. when the camera is switched off.
func (s *Slot) Clear() {
	s.mu.Lock()
	s.frame = emotion.Frame{}
	s.mu.Unlock()
}

// SlotStats is a snapshot of slot counters.
type SlotStats struct {
	Published   uint64 `json:"published"`
	Overwritten uint64 `json:"overwritten"`
	Read        uint64 `json:"read"`
}

func (s *Slot) Stats() SlotStats {
	return SlotStats{
		Published:   s.published.Load(),
		Overwritten: s.overwritten.Load(),
		Read:        s.read.Load(),
	}
}
