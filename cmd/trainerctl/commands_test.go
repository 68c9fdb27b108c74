package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeClassifier(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Image           string `json:"image"`
			RequiredEmotion string `json:"required_emotion"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if !strings.HasPrefix(req.Image, "data:image/png;base64,") {
			t.Errorf("image = %.30q, want png data url", req.Image)
		}
		resp := map[string]any{"success": true, "emotion": "Happy", "vietnamese": "Vui", "confidence": 0.8}
		if req.RequiredEmotion != "" {
			resp["is_correct"] = strings.EqualFold(req.RequiredEmotion, "happy")
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("GET /get-emotion-challenge", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"emotion": "Sad", "emoji": "😢", "vietnamese": "Buồn"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writePNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "face.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 48, 32))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassify(t *testing.T) {
	srv := fakeClassifier(t)
	img := writePNG(t)

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantEmotion string
		wantVerdict *bool
	}{
		{name: "free detect", args: []string{"classify", img}, wantEmotion: "Happy"},
		{name: "mimic correct", args: []string{"classify", img, "--mode", "mimic-challenge", "--target", "happy"}, wantEmotion: "Happy", wantVerdict: ptr(true)},
		{name: "mimic wrong", args: []string{"classify", img, "--mode", "mimic-challenge", "--target", "Sad"}, wantEmotion: "Happy", wantVerdict: ptr(false)},
		{name: "mimic without target", args: []string{"classify", img, "--mode", "mimic-challenge"}, wantErr: true},
		{name: "unknown mode", args: []string{"classify", img, "--mode", "karaoke"}, wantErr: true},
		{name: "missing file", args: []string{"classify", filepath.Join(t.TempDir(), "nope.png")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(tt.args, "--url", srv.URL)...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got output %s", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("execute: %v", err)
			}

			var got classifyOutput
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("decode output %q: %v", out, err)
			}
			if got.Prediction.Emotion != tt.wantEmotion {
				t.Errorf("emotion = %q, want %q", got.Prediction.Emotion, tt.wantEmotion)
			}
			switch {
			case tt.wantVerdict == nil && got.Verdict != nil:
				t.Errorf("unexpected verdict %+v", got.Verdict)
			case tt.wantVerdict != nil && (got.Verdict == nil || got.Verdict.Correct != *tt.wantVerdict):
				t.Errorf("verdict = %+v, want correct=%v", got.Verdict, *tt.wantVerdict)
			}
		})
	}
}

func TestChallengeCommand(t *testing.T) {
	srv := fakeClassifier(t)

	out, err := execute(t, "challenge", "--url", srv.URL)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, `"target": "Sad"`) {
		t.Errorf("output = %s, want Sad challenge", out)
	}
}

func TestChallengeCommandOffline(t *testing.T) {
	srv := fakeClassifier(t)
	url := srv.URL
	srv.Close()

	out, err := execute(t, "challenge", "--url", url, "--timeout", "500ms")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "using offline challenge") || !strings.Contains(out, `"target"`) {
		t.Errorf("output = %s, want offline notice and a challenge", out)
	}
}

func ptr[T any](v T) *T { return &v }
