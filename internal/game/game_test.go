package game

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/facequest/trainer/internal/capture"
	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/inference"
)

type fakeClassifier struct {
	mu     sync.Mutex
	reqs   []inference.Request
	active atomic.Int32
	peak   atomic.Int32
	answer func(call int) (emotion.Prediction, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, _ emotion.Frame, req inference.Request) (emotion.Prediction, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	call := len(f.reqs)
	f.mu.Unlock()

	if f.answer == nil {
		return emotion.Prediction{}, nil
	}
	return f.answer(call)
}

func (f *fakeClassifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func readyFrames() *capture.Slot {
	s := &capture.Slot{}
	s.Publish(emotion.Frame{Image: "data:image/jpeg;base64,AAAA", Width: 640, Height: 480})
	return s
}

func verdict(ok bool) func(int) (emotion.Prediction, error) {
	return func(int) (emotion.Prediction, error) {
		return emotion.Prediction{Emotion: "Happy", IsCorrect: &ok}, nil
	}
}
