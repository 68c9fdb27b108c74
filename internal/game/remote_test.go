package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facequest/trainer/internal/capture"
	"github.com/facequest/trainer/internal/challenge"
	"github.com/facequest/trainer/internal/inference"
)

// surpriseBackend speaks the classifier's vocabulary, where surprise is
// spelled "Suprise", and compares labels after lower-casing.
func surpriseBackend(t *testing.T) (*inference.Client, func() []string) {
	t.Helper()
	var (
		mu   sync.Mutex
		sent []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /get-emotion-challenge", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"emotion":"Suprise","emoji":"😮","vietnamese":"Ngạc nhiên"}`))
	})
	mux.HandleFunc("GET /get-scenario", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":4,"story":"Bạn thấy một món đồ chơi rất lạ.","correct_emotion":"Suprise","emoji":"🎁","illustration":"😲"}`))
	})
	predict := func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RequiredEmotion string `json:"required_emotion"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		sent = append(sent, req.RequiredEmotion)
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"success":          true,
			"emotion":          "Suprise",
			"detected_emotion": "Suprise",
			"is_correct":       strings.ToLower(req.RequiredEmotion) == "suprise",
		})
	}
	mux.HandleFunc("POST /predict", predict)
	mux.HandleFunc("POST /predict-game2", predict)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	clf, err := inference.NewClient(inference.Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	return clf, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), sent...)
	}
}

func TestRemoteSurpriseCanBeWon(t *testing.T) {
	tests := []struct {
		name string
		desc func(*challenge.Supplier) Descriptor
	}{
		{"mimic", func(s *challenge.Supplier) Descriptor { return MimicDescriptor(s, capture.Manual, time.Second) }},
		{"scenario", func(s *challenge.Supplier) Descriptor { return ScenarioDescriptor(s, capture.Manual, time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf, sent := surpriseBackend(t)
			c := NewChallenge(tt.desc(challenge.New(clf, slog.Default())), clf, readyFrames(), nil, slog.Default())
			c.Start(context.Background())
			defer c.Stop()

			require.Equal(t, "Surprise", snapshotOf(t, c).Prompt.Target)
			require.True(t, c.Capture())

			s := snapshotOf(t, c)
			assert.Equal(t, []string{"Suprise"}, sent())
			assert.Equal(t, 1, s.Score)
			assert.Equal(t, Celebrating, s.State)
		})
	}
}

func TestRemoteSurprisePuzzleCameraAnswer(t *testing.T) {
	clf, sent := surpriseBackend(t)
	p := newTestPuzzle(PuzzleConfig{Emotions: []string{"surprise"}, Classifier: clf, Frames: readyFrames()})
	defer p.Stop()
	require.NoError(t, p.SelectDifficulty(Easy))
	solve(t, p)

	done, err := p.CaptureAnswer()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"Suprise"}, sent())
	assert.Equal(t, Complete, p.State())
}
