package game

import (
	"sync"
	"time"
)

// timers owns a machine's delayed transitions. Its methods must be called
// with the machine's lock held, and callbacks run with that lock held.
// cancelAll bumps the generation so a callback that already fired but is
// still waiting for the lock becomes a no-op.
type timers struct {
	lock    sync.Locker
	gen     uint64
	seq     uint64
	pending map[uint64]*time.Timer
}

func newTimers(lock sync.Locker) *timers {
	return &timers{lock: lock, pending: make(map[uint64]*time.Timer)}
}

func (t *timers) after(d time.Duration, fn func()) {
	gen := t.gen
	t.seq++
	id := t.seq
	t.pending[id] = time.AfterFunc(d, func() {
		t.lock.Lock()
		defer t.lock.Unlock()
		delete(t.pending, id)
		if t.gen != gen {
			return
		}
		fn()
	})
}

func (t *timers) cancelAll() {
	t.gen++
	for id, tm := range t.pending {
		tm.Stop()
		delete(t.pending, id)
	}
}

func (t *timers) active() int { return len(t.pending) }
