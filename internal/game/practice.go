package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/facequest/trainer/internal/capture"
	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/inference"
	"github.com/facequest/trainer/internal/score"
)

// Detection is the last emotion seen in free practice.
type Detection struct {
	Emotion     string   `json:"emotion"`
	Translation string   `json:"translation,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

type PracticeSnapshot struct {
	Mode      emotion.Mode  `json:"mode"`
	Running   bool          `json:"running"`
	Detection *Detection    `json:"detection,omitempty"`
	Message   string        `json:"message,omitempty"`
	Capture   capture.Stats `json:"capture"`
}

// Practice shows whatever emotion the classifier sees, with no target and
// no score.
type Practice struct {
	clf     Classifier
	sched   *capture.Scheduler
	notify  Notifier
	logger  *slog.Logger
	cadence time.Duration

	mu        sync.Mutex
	running   bool
	detection *Detection
	message   string
	outage    bool
}

func NewPractice(clf Classifier, frames capture.FrameSource, cadence time.Duration, notify Notifier, logger *slog.Logger) *Practice {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Practice{
		clf:     clf,
		sched:   capture.NewScheduler(frames, logger),
		notify:  orDiscard(notify),
		logger:  logger.With("mode", string(emotion.ModePractice)),
		cadence: cadence,
	}
	p.sched.OnTick(p.capture)
	return p
}

func (p *Practice) Start() {
	p.mu.Lock()
	p.running = true
	p.mu.Unlock()
	p.sched.Start(p.cadence)
}

// Capture triggers one detection immediately.
func (p *Practice) Capture() bool {
	return p.sched.Trigger()
}

func (p *Practice) capture(ctx context.Context, f emotion.Frame) {
	pred, err := p.clf.Classify(ctx, f, inference.Request{Mode: inference.ModeFreeDetect})

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || ctx.Err() != nil {
		return
	}
	if err != nil {
		if inference.IsTransport(err) {
			if !p.outage {
				p.outage = true
				p.logger.Warn("classifier unreachable", "error", err)
				p.notify.Publish(Event{Type: EventNotice, Mode: emotion.ModePractice, Message: inference.Message(err)})
			}
			return
		}
		p.outage = false
		p.detection = nil
		p.message = inference.Message(err)
		p.emitLocked()
		return
	}

	p.outage = false
	p.message = pred.Message
	d := &Detection{
		Emotion:     emotion.Display(pred.Emotion),
		Translation: pred.Translation,
		Confidence:  pred.Confidence,
	}
	if d.Translation == "" {
		d.Translation = emotion.Translate(pred.Emotion)
	}
	p.detection = d
	p.notify.Publish(Event{Type: EventDetection, Mode: emotion.ModePractice, Detection: d})
	p.emitLocked()
}

func (p *Practice) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.sched.Stop()
}

func (p *Practice) Mode() emotion.Mode { return emotion.ModePractice }

func (p *Practice) Tally() score.Tally { return score.Tally{} }

func (p *Practice) Snapshot() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Practice) snapshotLocked() PracticeSnapshot {
	return PracticeSnapshot{
		Mode:      emotion.ModePractice,
		Running:   p.running,
		Detection: p.detection,
		Message:   p.message,
		Capture:   p.sched.Stats(),
	}
}

func (p *Practice) emitLocked() {
	p.notify.Publish(Event{Type: EventState, Mode: emotion.ModePractice, Snapshot: p.snapshotLocked()})
}
