// Package session owns the live game sessions: one per open screen, each
// wrapping a game machine and the frame slot the browser pushes into.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/facequest/trainer/internal/capture"
	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/game"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrUnsupported is returned for operations the session's mode lacks,
	// such as flipping a card in the puzzle.
	ErrUnsupported = errors.New("operation not supported in this mode")
)

// Options describe the session to create.
type Options struct {
	Mode         emotion.Mode    `json:"mode"`
	Difficulty   game.Difficulty `json:"difficulty,omitempty"`
	CameraAnswer bool            `json:"cameraAnswer,omitempty"`
}

type Session struct {
	ID        string
	Mode      emotion.Mode
	CreatedAt time.Time

	frames *capture.Slot
	game   game.Game
}

// View is the JSON form of a session.
type View struct {
	ID        string            `json:"id"`
	Mode      emotion.Mode      `json:"mode"`
	CreatedAt time.Time         `json:"createdAt"`
	Frames    capture.SlotStats `json:"frames"`
	State     any               `json:"state"`
}

func (s *Session) View() View {
	return View{
		ID:        s.ID,
		Mode:      s.Mode,
		CreatedAt: s.CreatedAt,
		Frames:    s.frames.Stats(),
		State:     s.game.Snapshot(),
	}
}

// PublishFrame stores the newest camera frame for the next capture.
func (s *Session) PublishFrame(f emotion.Frame) {
	if f.CapturedAt.IsZero() {
		f.CapturedAt = time.Now()
	}
	s.frames.Publish(f)
}

// ClearFrames drops the held frame so that no capture runs on a picture
// from a camera that has gone away.
func (s *Session) ClearFrames() {
	s.frames.Clear()
}

// Capture triggers an immediate capture in the camera modes. For the
// puzzle it answers the quiz with the camera.
func (s *Session) Capture() (bool, error) {
	switch g := s.game.(type) {
	case *game.Challenge:
		return g.Capture(), nil
	case *game.Practice:
		return g.Capture(), nil
	case *game.Puzzle:
		return g.CaptureAnswer()
	}
	return false, ErrUnsupported
}

func (s *Session) ToggleHint() (bool, error) {
	switch g := s.game.(type) {
	case *game.Challenge:
		return g.ToggleHint(), nil
	case *game.Puzzle:
		return g.ToggleHint(), nil
	}
	return false, ErrUnsupported
}

func (s *Session) Flip(cardID int) error {
	m, ok := s.game.(*game.Memory)
	if !ok {
		return ErrUnsupported
	}
	return m.Flip(cardID)
}

func (s *Session) Reset() error {
	m, ok := s.game.(*game.Memory)
	if !ok {
		return ErrUnsupported
	}
	m.Reset()
	return nil
}

func (s *Session) puzzle() (*game.Puzzle, error) {
	p, ok := s.game.(*game.Puzzle)
	if !ok {
		return nil, ErrUnsupported
	}
	return p, nil
}

func (s *Session) SelectDifficulty(d game.Difficulty) error {
	p, err := s.puzzle()
	if err != nil {
		return err
	}
	return p.SelectDifficulty(d)
}

func (s *Session) Swap(pieceID, target int) error {
	p, err := s.puzzle()
	if err != nil {
		return err
	}
	return p.Swap(pieceID, target)
}

func (s *Session) Answer(label string) (bool, error) {
	p, err := s.puzzle()
	if err != nil {
		return false, err
	}
	return p.Answer(label)
}

// PuzzleAction runs one of the complete-screen options: continue, replay
// or choose.
func (s *Session) PuzzleAction(action string) error {
	p, err := s.puzzle()
	if err != nil {
		return err
	}
	switch action {
	case "continue":
		return p.Continue()
	case "replay":
		return p.Replay()
	case "choose":
		p.ChooseDifficulty()
		return nil
	}
	return fmt.Errorf("puzzle action %q: %w", action, ErrUnsupported)
}

// difficulty is the puzzle level being played, if any.
func (s *Session) difficulty() string {
	snap, ok := s.game.Snapshot().(game.PuzzleSnapshot)
	if !ok || snap.Level == nil {
		return ""
	}
	return string(snap.Level.Difficulty)
}
