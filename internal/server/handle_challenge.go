package server

import (
	"math/rand/v2"
	"net/http"

	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/inference"
)

// handleEmotionChallenge serves a random mimic target in the classifier
// backend's wire shape.
func handleEmotionChallenge() http.HandlerFunc {
	labels := emotion.ServedChallengeEmotions()

	return func(w http.ResponseWriter, r *http.Request) {
		label := labels[rand.IntN(len(labels))]
		info, _ := emotion.Lookup(label)
		writeJSON(w, http.StatusOK, inference.ChallengeDTO{
			Emotion:    label,
			Emoji:      info.Emoji,
			Vietnamese: info.Translation,
		})
	}
}

// handleScenario serves a random story in the classifier backend's wire
// shape.
func handleScenario() http.HandlerFunc {
	scenarios := emotion.ServedScenarios()

	return func(w http.ResponseWriter, r *http.Request) {
		sc := scenarios[rand.IntN(len(scenarios))]
		writeJSON(w, http.StatusOK, inference.ScenarioDTO{
			ID:             sc.ID,
			Story:          sc.Narrative,
			CorrectEmotion: sc.Target,
			Emoji:          sc.HintEmoji,
			Illustration:   sc.Illustration,
		})
	}
}
