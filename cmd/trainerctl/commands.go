package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/facequest/trainer/internal/challenge"
	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/evaluate"
	"github.com/facequest/trainer/internal/inference"
)

type options struct {
	url     string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "trainerctl",
		Short: "Operator tool for the emotion classifier used by the trainer.",
		Args:  cobra.NoArgs,
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.url, "url", envOr("CLASSIFIER_URL", "http://localhost:5000"), "classifier base url (env: CLASSIFIER_URL)")
	fs.DurationVar(&opts.timeout, "timeout", 8*time.Second, "per-request timeout")

	cmd.AddCommand(newClassifyCmd(opts), newChallengeCmd(opts), newScenarioCmd(opts))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func (o *options) client() (*inference.Client, error) {
	return inference.NewClient(inference.Config{BaseURL: o.url, Timeout: o.timeout, MaxInFlight: 1})
}

type classifyOutput struct {
	Prediction emotion.Prediction `json:"prediction"`
	Verdict    *evaluate.Verdict  `json:"verdict,omitempty"`
}

func newClassifyCmd(opts *options) *cobra.Command {
	var (
		mode   string
		target string
	)

	cmd := &cobra.Command{
		Use:   "classify <image-file>",
		Short: "Classify the face in a JPEG or PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := inference.Mode(mode)
			switch m {
			case inference.ModeFreeDetect:
			case inference.ModeMimic, inference.ModeScenario:
				if target == "" {
					return fmt.Errorf("--target is required in %s mode", m)
				}
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}

			frame, err := loadFrame(args[0])
			if err != nil {
				return err
			}
			clf, err := opts.client()
			if err != nil {
				return err
			}

			p, err := clf.Classify(cmd.Context(), frame, inference.Request{Mode: m, Target: target})
			if err != nil {
				return fmt.Errorf("classifying %s: %s", args[0], inference.Message(err))
			}

			out := classifyOutput{Prediction: p}
			if target != "" {
				v := evaluate.Judge(p, target)
				out.Verdict = &v
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(inference.ModeFreeDetect), "free-detect, mimic-challenge or scenario")
	cmd.Flags().StringVar(&target, "target", "", "emotion the face should show")

	return cmd
}

// newChallengeCmd prints the next mimic challenge exactly as a game would
// receive it, including the local fallback when the service is down.
func newChallengeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "challenge",
		Short: "Fetch the next mimic challenge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clf, err := opts.client()
			if err != nil {
				return err
			}
			c, err := challenge.New(clf, nil).NextChallenge(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "using offline challenge: %s\n", inference.Message(err))
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
}

func newScenarioCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Fetch the next scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clf, err := opts.client()
			if err != nil {
				return err
			}
			sc, err := challenge.New(clf, nil).NextScenario(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "using offline scenario: %s\n", inference.Message(err))
			}
			return printJSON(cmd.OutOrStdout(), sc)
		},
	}
}

// loadFrame reads an image file into the data URL form the browser sends.
func loadFrame(path string) (emotion.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return emotion.Frame{}, fmt.Errorf("reading image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return emotion.Frame{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return emotion.Frame{
		Image:      "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data),
		Width:      cfg.Width,
		Height:     cfg.Height,
		CapturedAt: time.Now(),
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
