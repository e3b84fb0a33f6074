package gesture

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/livedeck/livedeck/pkg/core"
)

// Frame is a single still image captured from the live video source.
type Frame struct {
	Data     []byte
	MIMEType string
}

// Classifier is the boundary to a remote gesture classification endpoint.
//
// A single best-effort attempt per call: retry and backoff policy live
// entirely in the Governor, not here. Implementations must return a
// rate_limit core.Error when the endpoint throttles.
type Classifier interface {
	Classify(ctx context.Context, frame Frame) (Label, error)
}

// HTTPClassifier calls the POST /classify-gesture-image boundary.
type HTTPClassifier struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPClassifier creates a classifier client for the given boundary URL.
func NewHTTPClassifier(baseURL string, httpClient *http.Client) *HTTPClassifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClassifier{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
	}
}

type classifyRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
}

type classifyResponse struct {
	Label        string      `json:"label"`
	RetryAfterMs int         `json:"retryAfterMs,omitempty"`
	Error        *core.Error `json:"error,omitempty"`
}

// Classify submits one frame and returns the normalized label. Out-of-set
// labels come back as LabelNone.
func (c *HTTPClassifier) Classify(ctx context.Context, frame Frame) (Label, error) {
	if len(frame.Data) == 0 {
		return LabelNone, core.NewValidationError("frame is empty", "image")
	}

	body, err := json.Marshal(classifyRequest{
		Image:    base64.StdEncoding.EncodeToString(frame.Data),
		MIMEType: frame.MIMEType,
	})
	if err != nil {
		return LabelNone, core.NewBoundaryError(fmt.Sprintf("encode classify request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/classify-gesture-image", bytes.NewReader(body))
	if err != nil {
		return LabelNone, core.NewBoundaryError(fmt.Sprintf("build classify request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return LabelNone, core.NewBoundaryError(fmt.Sprintf("classify request: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return LabelNone, core.NewBoundaryError(fmt.Sprintf("read classify response: %v", err))
	}

	var decoded classifyResponse
	if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode == http.StatusOK {
		return LabelNone, core.NewBoundaryError(fmt.Sprintf("malformed classify response: %v", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return ParseLabel(decoded.Label), nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := decoded.RetryAfterMs
		if retryAfter <= 0 && decoded.Error != nil && decoded.Error.RetryAfterMs != nil {
			retryAfter = *decoded.Error.RetryAfterMs
		}
		return LabelNone, core.NewRateLimitError("classifier throttled", retryAfter)
	default:
		msg := fmt.Sprintf("classifier returned status %d", resp.StatusCode)
		if decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		return LabelNone, core.NewBoundaryError(msg)
	}
}
