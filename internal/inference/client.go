// Package inference talks to the remote emotion classifier.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/facequest/trainer/internal/emotion"
)

// Mode selects the classifier payload: a plain prediction, or a verdict
// against a supplied target.
type Mode string

const (
	ModeFreeDetect Mode = "free-detect"
	ModeMimic      Mode = "mimic-challenge"
	ModeScenario   Mode = "scenario"
)

// Request is the context sent along with a frame.
type Request struct {
	Mode   Mode
	Target string
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxInFlight int64
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	slots      *semaphore.Weighted
}

// ChallengeDTO is the body of GET /get-emotion-challenge.
type ChallengeDTO struct {
	Emotion    string `json:"emotion"`
	Emoji      string `json:"emoji"`
	Vietnamese string `json:"vietnamese"`
}

// ScenarioDTO is the body of GET /get-scenario.
type ScenarioDTO struct {
	ID             int    `json:"id"`
	Story          string `json:"story"`
	CorrectEmotion string `json:"correct_emotion"`
	Emoji          string `json:"emoji"`
	Illustration   string `json:"illustration"`
}

type predictRequest struct {
	Image           string `json:"image"`
	RequiredEmotion string `json:"required_emotion,omitempty"`
}

type predictResponse struct {
	Success         *bool    `json:"success"`
	Emotion         string   `json:"emotion"`
	DetectedEmotion string   `json:"detected_emotion"`
	RequiredEmotion string   `json:"required_emotion"`
	IsCorrect       *bool    `json:"is_correct"`
	Vietnamese      string   `json:"vietnamese"`
	Confidence      *float64 `json:"confidence"`
	Message         string   `json:"message"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("classifier base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 16
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		slots:      semaphore.NewWeighted(cfg.MaxInFlight),
	}, nil
}

// Classify sends one frame to the classifier. Every failure is a *Failure.
// Nothing is retried; the capture cadence is the retry mechanism.
func (c *Client) Classify(ctx context.Context, frame emotion.Frame, req Request) (emotion.Prediction, error) {
	if strings.TrimSpace(frame.Image) == "" {
		return emotion.Prediction{}, applicationFailure(0, "image is required")
	}

	path := "/predict"
	body := predictRequest{Image: frame.Image}
	switch req.Mode {
	case ModeFreeDetect, "":
	case ModeMimic:
		body.RequiredEmotion = emotion.WireLabel(req.Target)
	case ModeScenario:
		path = "/predict-game2"
		body.RequiredEmotion = emotion.WireLabel(req.Target)
	default:
		return emotion.Prediction{}, fmt.Errorf("unknown classify mode %q", req.Mode)
	}

	if err := c.slots.Acquire(ctx, 1); err != nil {
		return emotion.Prediction{}, transportFailure(err)
	}
	defer c.slots.Release(1)

	var resp predictResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return emotion.Prediction{}, err
	}
	if resp.Success != nil && !*resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "classifier could not read the face"
		}
		return emotion.Prediction{}, applicationFailure(http.StatusOK, msg)
	}

	p := emotion.Prediction{
		Translation: resp.Vietnamese,
		Confidence:  resp.Confidence,
		IsCorrect:   resp.IsCorrect,
		Message:     resp.Message,
	}
	// The story endpoint reports the raw detection under detected_emotion;
	// the challenge endpoint folds it into emotion.
	if req.Mode == ModeScenario {
		p.Emotion = firstNonEmpty(resp.DetectedEmotion, resp.Emotion)
	} else {
		p.Emotion = firstNonEmpty(resp.Emotion, resp.DetectedEmotion)
	}
	return p, nil
}

func (c *Client) NextChallenge(ctx context.Context) (ChallengeDTO, error) {
	var out ChallengeDTO
	if err := c.do(ctx, http.MethodGet, "/get-emotion-challenge", nil, &out); err != nil {
		return ChallengeDTO{}, err
	}
	if strings.TrimSpace(out.Emotion) == "" {
		return ChallengeDTO{}, applicationFailure(http.StatusOK, "challenge has no emotion")
	}
	return out, nil
}

func (c *Client) NextScenario(ctx context.Context) (ScenarioDTO, error) {
	var out ScenarioDTO
	if err := c.do(ctx, http.MethodGet, "/get-scenario", nil, &out); err != nil {
		return ScenarioDTO{}, err
	}
	if strings.TrimSpace(out.CorrectEmotion) == "" {
		return ScenarioDTO{}, applicationFailure(http.StatusOK, "scenario has no emotion")
	}
	return out, nil
}

// Ping checks that the classifier answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &e)
		msg := e.Message
		if msg == "" {
			msg = "backend request failed"
		}
		return applicationFailure(resp.StatusCode, msg)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return &Failure{Kind: Application, Status: resp.StatusCode, Message: "malformed classifier response", Err: err}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
