// Package evaluate turns a classifier prediction into a pass/fail verdict.
package evaluate

import "github.com/facequest/trainer/internal/emotion"

// Verdict is the outcome of one evaluated capture.
type Verdict struct {
	Correct    bool     `json:"correct"`
	Detected   string   `json:"detected,omitempty"`
	Target     string   `json:"target"`
	Confidence *float64 `json:"confidence,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Feedback used when the service sends no message of its own. They match the
// classifier's wording.
const (
	MessageCorrect = "Chính xác! Bạn đã thể hiện đúng cảm xúc!"
	MessageRetry   = "Chưa đúng. Hãy thử lại nhé!"
)

// Evaluate trusts an explicit IsCorrect from the service. Without one it
// compares the predicted and target labels case-insensitively.
func Evaluate(p emotion.Prediction, target string) bool {
	if p.IsCorrect != nil {
		return *p.IsCorrect
	}
	if p.Emotion == "" || target == "" {
		return false
	}
	return canonical(p.Emotion) == canonical(target)
}

// Judge evaluates p and carries along the display data for feedback.
func Judge(p emotion.Prediction, target string) Verdict {
	v := Verdict{
		Correct:    Evaluate(p, target),
		Detected:   emotion.Display(p.Emotion),
		Target:     emotion.Display(target),
		Confidence: p.Confidence,
		Message:    p.Message,
	}
	if v.Message == "" {
		if v.Correct {
			v.Message = MessageCorrect
		} else {
			v.Message = MessageRetry
		}
	}
	return v
}

// The classifier cannot tell disgust from fear, so both sides fold to fear.
func canonical(label string) string {
	k := emotion.Key(label)
	if k == "disgust" {
		return "fear"
	}
	return k
}
