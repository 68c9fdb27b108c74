package capture

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facequest/trainer/internal/emotion"
)

// Manual is the cadence for button-triggered capture: no timer runs.
const Manual time.Duration = 0

// State is the capture guard.
type State int

const (
	Idle State = iota
	Capturing
	Cooling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Cooling:
		return "cooling"
	}
	return "unknown"
}

// Handler evaluates one captured frame. ctx is cancelled by Stop.
type Handler func(ctx context.Context, f emotion.Frame)

// Scheduler drives captures at a fixed cadence or on demand. A tick that
// arrives while a capture is in flight, or while cooling down, is dropped,
// never queued.
type Scheduler struct {
	src    FrameSource
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	running bool
	gen     uint64
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc

	fired    atomic.Uint64
	dropped  atomic.Uint64
	notReady atomic.Uint64
	panics   atomic.Uint64
}

func NewScheduler(src FrameSource, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{src: src, logger: logger}
}

// OnTick registers the capture callback. It replaces any previous handler.
func (s *Scheduler) OnTick(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Start begins producing ticks every cadence, or accepts only Trigger calls
// when cadence is Manual. Starting a running scheduler restarts it.
func (s *Scheduler) Start(cadence time.Duration) {
	s.Stop()

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true
	s.state = Idle
	gen := s.gen
	ctx := s.ctx
	s.mu.Unlock()

	if cadence <= Manual {
		return
	}
	go s.loop(ctx, gen, cadence)
}

func (s *Scheduler) loop(ctx context.Context, gen uint64, cadence time.Duration) {
	t := time.NewTicker(cadence)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(gen)
		}
	}
}

// Trigger fires one capture now. It reports whether a capture ran; false
// means the tick was dropped (stopped, busy, cooling, or no frame yet).
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return s.tick(gen)
}

func (s *Scheduler) tick(gen uint64) bool {
	s.mu.Lock()
	if !s.running || s.gen != gen || s.handler == nil {
		s.mu.Unlock()
		return false
	}
	if s.state != Idle {
		state := s.state
		s.mu.Unlock()
		s.dropped.Add(1)
		s.logger.Debug("capture tick dropped", "state", state.String())
		return false
	}
	frame := s.src.Latest()
	if !frame.Ready() {
		s.mu.Unlock()
		s.notReady.Add(1)
		return false
	}
	s.state = Capturing
	h := s.handler
	ctx := s.ctx
	s.mu.Unlock()

	defer s.release(gen)
	s.fired.Add(1)
	return s.run(ctx, h, frame)
}

// run calls the handler. A panic is logged and counted, and the capture is
// reported as not having run.
func (s *Scheduler) run(ctx context.Context, h Handler, f emotion.Frame) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			s.logger.Error("capture handler panicked", "panic", r, "stack", string(debug.Stack()))
			ok = false
		}
	}()
	h(ctx, f)
	return true
}

// release returns the guard to Idle unless the handler parked it in Cooling
// or the scheduler was stopped meanwhile.
func (s *Scheduler) release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.state == Capturing {
		s.state = Idle
	}
}

// Cool parks the scheduler so that ticks are dropped until Resume.
func (s *Scheduler) Cool() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.state = Cooling
	}
}

// Resume ends a cool-down.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Cooling {
		s.state = Idle
	}
}

// Stop cancels the ticker and any in-flight capture context and resets the
// guard. Callbacks from the cancelled run can no longer move the guard.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = Idle
	s.running = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	State    string `json:"state"`
	Fired    uint64 `json:"fired"`
	Dropped  uint64 `json:"dropped"`
	NotReady uint64 `json:"notReady"`
	Panics   uint64 `json:"panics"`
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		State:    s.State().String(),
		Fired:    s.fired.Load(),
		Dropped:  s.dropped.Load(),
		NotReady: s.notReady.Load(),
		Panics:   s.panics.Load(),
	}
}
