// Package upstream wraps the Gemini API for the two model-backed
// boundaries: gesture image classification and audio transcription.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/livedeck/livedeck/pkg/core"
	"github.com/livedeck/livedeck/pkg/core/gesture"
)

// DefaultRetryAfterMs is reported to callers when Gemini throttles us
// without a usable retry hint.
const DefaultRetryAfterMs = 10_000

// classifyPrompt enumerates the recognized labels so the answer vocabulary
// stays in lockstep with gesture.Labels.
var classifyPrompt = buildClassifyPrompt()

func buildClassifyPrompt() string {
	words := make([]string, 0, len(gesture.Labels())+1)
	for _, l := range gesture.Labels() {
		words = append(words, string(l))
	}
	words = append(words, string(gesture.LabelNone))
	return `You are a gesture classifier. The image shows a person in front of a webcam.
Answer with exactly one word from this list: ` + strings.Join(words, ", ") + `.
Answer "none" unless the gesture is clearly one of the others.`
}

const transcribePrompt = `Transcribe the speech in this audio clip. Return only the transcript text, with no commentary. If there is no intelligible speech, return an empty string.`

// Config holds the settings for the Gemini client.
type Config struct {
	APIKey          string
	VisionModel     string
	TranscribeModel string
	Timeout         time.Duration
}

// Client calls Gemini through the official SDK.
type Client struct {
	models          *genai.Models
	visionModel     string
	transcribeModel string
	timeout         time.Duration
}

// New builds a Client. The API key is required here; callers that may run
// without one should construct the client lazily and surface the
// configuration error per request.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, core.NewConfigurationError("GEMINI_API_KEY is not set")
	}
	if cfg.VisionModel == "" || cfg.TranscribeModel == "" {
		return nil, core.NewConfigurationError("upstream model names must be set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, core.NewConfigurationError(fmt.Sprintf("creating gemini client: %v", err))
	}

	return &Client{
		models:          gc.Models,
		visionModel:     cfg.VisionModel,
		transcribeModel: cfg.TranscribeModel,
		timeout:         cfg.Timeout,
	}, nil
}

// ClassifyGesture classifies a single webcam frame. Unrecognized or
// ambiguous answers collapse to LabelNone rather than erroring.
func (c *Client) ClassifyGesture(ctx context.Context, image []byte, mimeType string) (gesture.Label, error) {
	if len(image) == 0 {
		return gesture.LabelNone, core.NewValidationError("image is required", "image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(classifyPrompt),
		}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(ctx, c.visionModel, contents, nil)
	if err != nil {
		return gesture.LabelNone, mapError("classify", err)
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Text()))
	// Models occasionally add punctuation or a trailing explanation.
	if i := strings.IndexAny(answer, " .,\n"); i >= 0 {
		answer = answer[:i]
	}
	return gesture.ParseLabel(answer), nil
}

// Transcribe converts an audio clip to text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", core.NewValidationError("audio is required", "audio")
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, mimeType),
			genai.NewPartFromText(transcribePrompt),
		}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(ctx, c.transcribeModel, contents, nil)
	if err != nil {
		return "", mapError("transcribe", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// mapError converts SDK errors into the canonical taxonomy so handlers can
// produce the right status codes without knowing about genai.
func mapError(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return core.NewRateLimitError("upstream model rate limited", DefaultRetryAfterMs)
		case 400:
			return core.NewValidationError(apiErr.Message, "")
		case 401, 403:
			return core.NewConfigurationError("upstream rejected credentials: " + apiErr.Message)
		}
		return core.NewBoundaryError(fmt.Sprintf("%s upstream error (%d): %s", op, apiErr.Code, apiErr.Message))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewBoundaryError(op + " upstream timeout")
	}
	return core.NewBoundaryError(fmt.Sprintf("%s upstream error: %v", op, err))
}
