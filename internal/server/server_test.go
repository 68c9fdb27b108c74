package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facequest/trainer/internal/challenge"
	"github.com/facequest/trainer/internal/database"
	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/inference"
	"github.com/facequest/trainer/internal/migrations"
	"github.com/facequest/trainer/internal/preferences"
	"github.com/facequest/trainer/internal/session"
	"github.com/facequest/trainer/internal/store"
)

// stubClassifier approves every frame.
type stubClassifier struct{}

func (stubClassifier) Classify(_ context.Context, _ emotion.Frame, req inference.Request) (emotion.Prediction, error) {
	ok := true
	conf := 0.9
	return emotion.Prediction{Emotion: req.Target, IsCorrect: &ok, Confidence: &conf}, nil
}

type testEnv struct {
	router   *chi.Mux
	sessions *session.Manager
	store    *store.SQLiteStore
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupEnvIdle(t, time.Minute)
}

func setupEnvIdle(t *testing.T, idle time.Duration) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.Default()

	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st := store.NewSQLiteStore(db)
	prefs := preferences.New(st, logger)
	if err := prefs.Load(ctx); err != nil {
		t.Fatalf("load preferences: %v", err)
	}

	broker := NewBroker()
	// Long cadences so captures only happen when a test asks for one.
	mgr := session.NewManager(session.Config{
		PracticeCadence:  time.Hour,
		ChallengeCadence: time.Hour,
		CelebrationDwell: time.Hour,
		MatchDelay:       10 * time.Millisecond,
		MismatchDelay:    10 * time.Millisecond,
		PuzzlePause:      10 * time.Millisecond,
		IdleTimeout:      idle,
	}, stubClassifier{}, challenge.New(nil, logger), st, broker, logger)
	t.Cleanup(mgr.Close)

	r := chi.NewRouter()
	addRoutes(r, logger, Deps{
		Sessions:    mgr,
		Broker:      broker,
		Preferences: prefs,
		Results:     st,
		PublicURL:   "http://trainer.local:8080",
	})
	return &testEnv{router: r, sessions: mgr, store: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type viewBody struct {
	ID    string          `json:"id"`
	Mode  string          `json:"mode"`
	State json.RawMessage `json:"state"`
}

func (e *testEnv) create(t *testing.T, opts session.Options) viewBody {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", opts)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var v viewBody
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"memory", session.Options{Mode: emotion.ModeMemory}, http.StatusCreated},
		{"mimic", session.Options{Mode: emotion.ModeMimic}, http.StatusCreated},
		{"puzzle with difficulty", session.Options{Mode: emotion.ModePuzzle, Difficulty: "hard"}, http.StatusCreated},
		{"unknown mode", session.Options{Mode: "karaoke"}, http.StatusBadRequest},
		{"bad difficulty", session.Options{Mode: emotion.ModePuzzle, Difficulty: "extreme"}, http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t)
			rec := env.do(t, http.MethodPost, "/api/sessions", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := setupEnv(t)
	v := env.create(t, session.Options{Mode: emotion.ModeMemory})

	rec := env.do(t, http.MethodGet, "/api/sessions/"+v.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	var state struct {
		Cards []struct {
			ID int `json:"id"`
		} `json:"cards"`
	}
	if err := json.Unmarshal(v.State, &state); err != nil {
		t.Fatalf("decode memory state: %v", err)
	}
	if len(state.Cards) != 16 {
		t.Fatalf("cards = %d, want 16", len(state.Cards))
	}

	first := state.Cards[0].ID
	if rec := env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/cards/"+strconv.Itoa(first)+"/flip", nil); rec.Code != http.StatusOK {
		t.Fatalf("flip status = %d, body = %s", rec.Code, rec.Body.String())
	}
	// Flipping the same card again is an invalid move.
	if rec := env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/cards/"+strconv.Itoa(first)+"/flip", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("second flip status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/cards/abc/flip", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad card id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	if rec := env.do(t, http.MethodDelete, "/api/sessions/"+v.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/sessions/"+v.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = env.do(t, http.MethodGet, "/api/results?mode=memory", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("results status = %d", rec.Code)
	}
	var results []store.Result
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 1 || results[0].SessionID != v.ID {
		t.Errorf("results = %+v, want one for session %s", results, v.ID)
	}
}

func TestModeSpecificRoutes(t *testing.T) {
	env := setupEnv(t)
	mimic := env.create(t, session.Options{Mode: emotion.ModeMimic})
	memory := env.create(t, session.Options{Mode: emotion.ModeMemory})
	puzzle := env.create(t, session.Options{Mode: emotion.ModePuzzle})

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"flip on mimic", http.MethodPost, "/api/sessions/" + mimic.ID + "/cards/1/flip", nil, http.StatusBadRequest},
		{"reset on puzzle", http.MethodPost, "/api/sessions/" + puzzle.ID + "/reset", nil, http.StatusBadRequest},
		{"hint on memory", http.MethodPost, "/api/sessions/" + memory.ID + "/hint", nil, http.StatusBadRequest},
		{"capture on memory", http.MethodPost, "/api/sessions/" + memory.ID + "/capture", nil, http.StatusBadRequest},
		{"hint on mimic", http.MethodPost, "/api/sessions/" + mimic.ID + "/hint", nil, http.StatusOK},
		{"reset on memory", http.MethodPost, "/api/sessions/" + memory.ID + "/reset", nil, http.StatusOK},
		{"answer before assembling", http.MethodPost, "/api/sessions/" + puzzle.ID + "/puzzle/answer", AnswerRequest{Emotion: "Happy"}, http.StatusConflict},
		{"swap before difficulty", http.MethodPost, "/api/sessions/" + puzzle.ID + "/puzzle/swap", SwapRequest{PieceID: 0, Target: 1}, http.StatusConflict},
		{"replay before complete", http.MethodPost, "/api/sessions/" + puzzle.ID + "/puzzle/replay", nil, http.StatusConflict},
		{"unknown puzzle action", http.MethodPost, "/api/sessions/" + puzzle.ID + "/puzzle/skip", nil, http.StatusNotFound},
		{"bad difficulty", http.MethodPost, "/api/sessions/" + puzzle.ID + "/puzzle/difficulty", DifficultyRequest{Difficulty: "extreme"}, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/api/sessions/nope", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestPuzzleRoutes(t *testing.T) {
	env := setupEnv(t)
	v := env.create(t, session.Options{Mode: emotion.ModePuzzle})

	rec := env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/puzzle/difficulty", DifficultyRequest{Difficulty: "easy"})
	if rec.Code != http.StatusOK {
		t.Fatalf("difficulty status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var view struct {
		State struct {
			State  string `json:"state"`
			Pieces []struct {
				ID int `json:"id"`
			} `json:"pieces"`
		} `json:"state"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.State.State != "assembling" || len(view.State.Pieces) != 4 {
		t.Fatalf("state = %q with %d pieces, want assembling with 4", view.State.State, len(view.State.Pieces))
	}

	if rec := env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/puzzle/swap", SwapRequest{PieceID: 0, Target: 9}); rec.Code != http.StatusBadRequest {
		t.Errorf("out of range swap status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/puzzle/choose", nil); rec.Code != http.StatusOK {
		t.Errorf("choose status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestFramesAndCapture(t *testing.T) {
	env := setupEnv(t)
	v := env.create(t, session.Options{Mode: emotion.ModeMimic})

	// No frame yet: the capture is dropped.
	rec := env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/capture", nil)
	var resp CaptureResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || resp.Accepted {
		t.Fatalf("capture without frame = %d accepted=%v", rec.Code, resp.Accepted)
	}

	rec = env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/frames", FrameRequest{Image: "data:image/jpeg;base64,AAAA", Width: 640, Height: 480})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("frame status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/capture", nil)
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.Accepted {
		t.Fatal("capture with frame was not accepted")
	}

	rec = env.do(t, http.MethodGet, "/api/sessions/"+v.ID, nil)
	var view struct {
		State struct {
			State string `json:"state"`
			Score int    `json:"score"`
		} `json:"state"`
	}
	json.NewDecoder(rec.Body).Decode(&view)
	if view.State.Score != 1 || view.State.State != "celebrating" {
		t.Errorf("after correct capture: state %q score %d, want celebrating 1", view.State.State, view.State.Score)
	}
}

func TestPreferencesRoutes(t *testing.T) {
	env := setupEnv(t)

	get := func() PreferencesResponse {
		t.Helper()
		rec := env.do(t, http.MethodGet, "/api/preferences/kid", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get preferences status = %d", rec.Code)
		}
		var p PreferencesResponse
		json.NewDecoder(rec.Body).Decode(&p)
		return p
	}

	if p := get(); !p.MusicEnabled || !p.SoundEnabled {
		t.Fatalf("defaults = %+v, want both enabled", p)
	}

	if rec := env.do(t, http.MethodPost, "/api/preferences/kid/music/toggle", nil); rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	off := false
	if rec := env.do(t, http.MethodPost, "/api/preferences/kid", PreferencesRequest{SoundEnabled: &off}); rec.Code != http.StatusOK {
		t.Fatalf("set status = %d", rec.Code)
	}

	p := get()
	if p.MusicEnabled || p.SoundEnabled {
		t.Errorf("after changes = %+v, want both disabled", p)
	}

	saved, err := env.store.GetPreferences(context.Background(), "kid")
	if err != nil {
		t.Fatalf("stored preferences: %v", err)
	}
	if saved.MusicEnabled || saved.SoundEnabled {
		t.Errorf("stored = %+v, want both disabled", saved)
	}
}

func TestListResultsValidation(t *testing.T) {
	env := setupEnv(t)

	tests := []struct {
		query      string
		wantStatus int
	}{
		{"", http.StatusOK},
		{"?mode=puzzle&limit=5", http.StatusOK},
		{"?limit=5000", http.StatusOK},
		{"?mode=karaoke", http.StatusBadRequest},
		{"?limit=0", http.StatusBadRequest},
		{"?limit=ten", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/results"+tt.query, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestChallengeEndpoints(t *testing.T) {
	env := setupEnv(t)

	served := map[string]bool{}
	for _, e := range emotion.ServedChallengeEmotions() {
		served[e] = true
	}
	for range 20 {
		rec := env.do(t, http.MethodGet, "/get-emotion-challenge", nil)
		var c inference.ChallengeDTO
		if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
			t.Fatalf("decode challenge: %v", err)
		}
		if !served[c.Emotion] || c.Emoji == "" || c.Vietnamese == "" {
			t.Fatalf("challenge = %+v", c)
		}
	}

	rec := env.do(t, http.MethodGet, "/get-scenario", nil)
	var sc inference.ScenarioDTO
	if err := json.NewDecoder(rec.Body).Decode(&sc); err != nil {
		t.Fatalf("decode scenario: %v", err)
	}
	if sc.Story == "" || sc.CorrectEmotion == "" {
		t.Errorf("scenario = %+v", sc)
	}
}

func TestQR(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/qr.png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("content-type = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	if rec := env.do(t, http.MethodGet, "/qr.png?size=10", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("tiny size status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestEventsStream(t *testing.T) {
	env := setupEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	v := env.create(t, session.Options{Mode: emotion.ModeMemory})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/"+v.ID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	next := func() string {
		t.Helper()
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "event: ") {
				return strings.TrimPrefix(line, "event: ")
			}
		}
		return ""
	}

	if ev := next(); ev != "state" {
		t.Fatalf("first event = %q, want state", ev)
	}

	if err := env.sessions.Delete(v.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ev := next(); ev != "ended" {
		t.Fatalf("event after delete = %q, want ended", ev)
	}
	// The server closes the stream after the ended event.
	for sc.Scan() {
	}
	if err := sc.Err(); err != nil {
		t.Errorf("stream error: %v", err)
	}
}
