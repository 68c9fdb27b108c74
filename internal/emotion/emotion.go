// Package emotion defines the core domain types shared by the trainer's
// engine packages. It has zero external dependencies.
package emotion

import (
	"strings"
	"time"
)

// Mode identifies a game screen.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeMimic    Mode = "mimic"
	ModeScenario Mode = "scenario"
	ModeMemory   Mode = "memory"
	ModePuzzle   Mode = "puzzle"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModePractice, ModeMimic, ModeScenario, ModeMemory, ModePuzzle:
		return true
	}
	return false
}

// Challenge is a single target emotion presented to the player to imitate.
// It is replaced wholesale on rotation, never mutated.
type Challenge struct {
	Target      string `json:"target"`
	Asset       string `json:"asset"`
	Hint        string `json:"hint"`
	Translation string `json:"translation"`
}

// Scenario is a short narrative paired with a target emotion.
type Scenario struct {
	ID           int    `json:"id"`
	Narrative    string `json:"narrative"`
	Target       string `json:"target"`
	Illustration string `json:"illustration"`
	HintEmoji    string `json:"hintEmoji"`
}

// Prediction is what the classifier said about one frame. Optional fields
// are left zero (or nil) when the service did not send them.
type Prediction struct {
	Emotion     string   `json:"emotion,omitempty"`
	Translation string   `json:"translation,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	IsCorrect   *bool    `json:"isCorrect,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// Frame is one captured still from the player's camera, encoded as a data URL.
type Frame struct {
	Image      string    `json:"image"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Ready reports whether the frame carries pixels. The camera reports zero
// dimensions until the first frame has been decoded.
func (f Frame) Ready() bool {
	return f.Width > 0 && f.Height > 0 && f.Image != ""
}

var aliases = map[string]string{
	"suprise":   "surprise",
	"surprised": "surprise",
	"disgusted": "disgust",
}

// Key returns the normalized lookup key for a label: trimmed, lower-cased,
// with known spelling variants folded together.
func Key(label string) string {
	k := strings.ToLower(strings.TrimSpace(label))
	if a, ok := aliases[k]; ok {
		return a
	}
	return k
}

// Display returns the capitalized display form of a label.
func Display(label string) string {
	k := Key(label)
	if k == "" {
		return ""
	}
	return strings.ToUpper(k[:1]) + k[1:]
}

// wireLabels holds the classifier's own spelling where it differs from the
// display form. The service compares required and detected labels verbatim
// after lower-casing.
var wireLabels = map[string]string{
	"surprise": "Suprise",
}

// WireLabel returns the label in the classifier's vocabulary.
func WireLabel(label string) string {
	if w, ok := wireLabels[Key(label)]; ok {
		return w
	}
	return Display(label)
}
