package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/facequest/trainer/internal/capture"
	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/evaluate"
	"github.com/facequest/trainer/internal/inference"
	"github.com/facequest/trainer/internal/score"
)

// Prompt is what the player is asked to show. Exactly one of Challenge and
// Scenario is set.
type Prompt struct {
	Target    string             `json:"target"`
	Challenge *emotion.Challenge `json:"challenge,omitempty"`
	Scenario  *emotion.Scenario  `json:"scenario,omitempty"`
}

// Prompter yields the next prompt. The prompt is always usable; a non-nil
// error reports that a local fallback was used.
type Prompter func(ctx context.Context) (Prompt, error)

// ChallengeSource supplies mimic challenges.
type ChallengeSource interface {
	NextChallenge(ctx context.Context) (emotion.Challenge, error)
}

// ScenarioSource supplies story scenarios.
type ScenarioSource interface {
	NextScenario(ctx context.Context) (emotion.Scenario, error)
}

func ChallengePrompter(src ChallengeSource) Prompter {
	return func(ctx context.Context) (Prompt, error) {
		c, err := src.NextChallenge(ctx)
		return Prompt{Target: c.Target, Challenge: &c}, err
	}
}

func ScenarioPrompter(src ScenarioSource) Prompter {
	return func(ctx context.Context) (Prompt, error) {
		s, err := src.NextScenario(ctx)
		return Prompt{Target: s.Target, Scenario: &s}, err
	}
}

// Descriptor parameterizes the challenge machine for one game mode.
type Descriptor struct {
	Mode      emotion.Mode
	Inference inference.Mode
	Cadence   time.Duration
	Dwell     time.Duration
	Points    int
	Prompt    Prompter
}

// MimicDescriptor asks the player to imitate a face, one point per success.
func MimicDescriptor(src ChallengeSource, cadence, dwell time.Duration) Descriptor {
	return Descriptor{
		Mode:      emotion.ModeMimic,
		Inference: inference.ModeMimic,
		Cadence:   cadence,
		Dwell:     dwell,
		Points:    1,
		Prompt:    ChallengePrompter(src),
	}
}

// ScenarioDescriptor asks the player to react to a short story.
func ScenarioDescriptor(src ScenarioSource, cadence, dwell time.Duration) Descriptor {
	return Descriptor{
		Mode:      emotion.ModeScenario,
		Inference: inference.ModeScenario,
		Cadence:   cadence,
		Dwell:     dwell,
		Points:    1,
		Prompt:    ScenarioPrompter(src),
	}
}

type ChallengeState string

const (
	AwaitingCapture ChallengeState = "awaiting_capture"
	Evaluating      ChallengeState = "evaluating"
	Celebrating     ChallengeState = "celebrating"
	Stopped         ChallengeState = "stopped"
)

// ChallengeSnapshot is the visible state of a challenge session.
type ChallengeSnapshot struct {
	Mode        emotion.Mode      `json:"mode"`
	State       ChallengeState    `json:"state"`
	Prompt      Prompt            `json:"prompt"`
	HintVisible bool              `json:"hintVisible"`
	Score       int               `json:"score"`
	LastVerdict *evaluate.Verdict `json:"lastVerdict,omitempty"`
	Capture     capture.Stats     `json:"capture"`
}

// Challenge runs the capture, evaluate, celebrate loop shared by the mimic
// and scenario screens.
type Challenge struct {
	d      Descriptor
	clf    Classifier
	sched  *capture.Scheduler
	notify Notifier
	logger *slog.Logger
	score  *score.Keeper

	mu     sync.Mutex
	state  ChallengeState
	prompt Prompt
	next   *Prompt
	hint   bool
	last   *evaluate.Verdict
	outage bool
	timers *timers
}

func NewChallenge(d Descriptor, clf Classifier, frames capture.FrameSource, notify Notifier, logger *slog.Logger) *Challenge {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Challenge{
		d:      d,
		clf:    clf,
		sched:  capture.NewScheduler(frames, logger),
		notify: orDiscard(notify),
		logger: logger.With("mode", string(d.Mode)),
		score:  score.New(nil),
		state:  Stopped,
	}
	c.timers = newTimers(&c.mu)
	c.sched.OnTick(c.capture)
	return c
}

// Start fetches the first prompt and begins capturing.
func (c *Challenge) Start(ctx context.Context) {
	p, err := c.d.Prompt(ctx)

	c.mu.Lock()
	c.prompt = p
	c.state = AwaitingCapture
	if err != nil {
		c.noticeLocked("Using offline challenges")
	}
	c.emitLocked()
	c.mu.Unlock()

	c.sched.Start(c.d.Cadence)
}

// Capture triggers one capture immediately. It reports false when the tick
// was dropped.
func (c *Challenge) Capture() bool {
	return c.sched.Trigger()
}

func (c *Challenge) capture(ctx context.Context, f emotion.Frame) {
	c.mu.Lock()
	if c.state != AwaitingCapture {
		c.mu.Unlock()
		return
	}
	c.state = Evaluating
	target := c.prompt.Target
	c.emitLocked()
	c.mu.Unlock()

	p, err := c.clf.Classify(ctx, f, inference.Request{Mode: c.d.Inference, Target: target})

	c.mu.Lock()
	if c.state != Evaluating || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.failLocked(err, target)
		c.mu.Unlock()
		return
	}
	c.outage = false
	v := evaluate.Judge(p, target)
	c.last = &v
	c.notify.Publish(Event{Type: EventVerdict, Mode: c.d.Mode, Verdict: &v})
	if !v.Correct {
		c.state = AwaitingCapture
		c.emitLocked()
		c.mu.Unlock()
		return
	}
	c.score.Add(c.d.Points)
	c.state = Celebrating
	c.sched.Cool()
	c.emitLocked()
	c.mu.Unlock()

	c.rotate(ctx)
}

func (c *Challenge) failLocked(err error, target string) {
	c.state = AwaitingCapture
	if inference.IsTransport(err) {
		if !c.outage {
			c.outage = true
			c.logger.Warn("classifier unreachable", "error", err)
			c.noticeLocked(inference.Message(err))
		}
		c.emitLocked()
		return
	}
	c.outage = false
	v := evaluate.Verdict{Target: emotion.Display(target), Message: inference.Message(err)}
	c.last = &v
	c.notify.Publish(Event{Type: EventVerdict, Mode: c.d.Mode, Verdict: &v})
	c.emitLocked()
}

// rotate fetches the next prompt while celebrating and swaps it in once the
// dwell has elapsed.
func (c *Challenge) rotate(ctx context.Context) {
	started := time.Now()
	p, err := c.d.Prompt(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Celebrating || ctx.Err() != nil {
		return
	}
	if err != nil {
		c.noticeLocked("Using offline challenges")
	}
	c.next = &p
	c.timers.after(max(0, c.d.Dwell-time.Since(started)), func() {
		c.prompt = *c.next
		c.next = nil
		c.hint = false
		c.state = AwaitingCapture
		c.sched.Resume()
		c.emitLocked()
	})
}

// ToggleHint flips hint visibility and returns the new value.
func (c *Challenge) ToggleHint() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hint = !c.hint
	c.emitLocked()
	return c.hint
}

// Stop halts capturing and cancels any pending transition.
func (c *Challenge) Stop() {
	c.mu.Lock()
	c.state = Stopped
	c.next = nil
	c.timers.cancelAll()
	c.mu.Unlock()
	c.sched.Stop()
}

func (c *Challenge) Mode() emotion.Mode { return c.d.Mode }

func (c *Challenge) Tally() score.Tally { return c.score.Tally() }

func (c *Challenge) Snapshot() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Challenge) State() ChallengeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Challenge) snapshotLocked() ChallengeSnapshot {
	return ChallengeSnapshot{
		Mode:        c.d.Mode,
		State:       c.state,
		Prompt:      c.prompt,
		HintVisible: c.hint,
		Score:       c.score.Score(),
		LastVerdict: c.last,
		Capture:     c.sched.Stats(),
	}
}

func (c *Challenge) emitLocked() {
	c.notify.Publish(Event{Type: EventState, Mode: c.d.Mode, Snapshot: c.snapshotLocked()})
}

func (c *Challenge) noticeLocked(msg string) {
	c.notify.Publish(Event{Type: EventNotice, Mode: c.d.Mode, Message: msg})
}
