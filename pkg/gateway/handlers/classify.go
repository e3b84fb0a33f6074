package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/livedeck/livedeck/pkg/core"
	"github.com/livedeck/livedeck/pkg/core/gesture"
	"github.com/livedeck/livedeck/pkg/gateway/apierror"
	"github.com/livedeck/livedeck/pkg/gateway/metrics"
)

// GestureClassifier is the upstream dependency of the classify endpoint.
type GestureClassifier interface {
	ClassifyGesture(ctx context.Context, image []byte, mimeType string) (gesture.Label, error)
}

type ClassifyHandler struct {
	Upstream         GestureClassifier // nil when the Gemini key is missing
	Metrics          *metrics.Metrics
	Logger           *slog.Logger
	MaxBodyBytes     int64
	MaxImageB64Bytes int64
}

type classifyRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
}

type classifyResponse struct {
	Label        string      `json:"label"`
	RetryAfterMs *int        `json:"retryAfterMs,omitempty"`
	Error        *core.Error `json:"error,omitempty"`
}

func (h *ClassifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, http.MethodPost)
		return
	}

	if h.Upstream == nil {
		h.fail(w, r, core.NewConfigurationError("gesture classification is unavailable: GEMINI_API_KEY is not set"), start)
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	var req classifyRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.fail(w, r, core.NewValidationError("invalid json body: "+err.Error(), ""), start)
		return
	}

	raw := strings.TrimSpace(req.Image)
	if raw == "" {
		h.fail(w, r, core.NewValidationError("image is required", "image"), start)
		return
	}
	if h.MaxImageB64Bytes > 0 && int64(len(raw)) > h.MaxImageB64Bytes {
		h.fail(w, r, core.NewValidationError("image exceeds size budget", "image"), start)
		return
	}

	// Accept both bare base64 and data URLs from browser capture code.
	if i := strings.Index(raw, ";base64,"); i >= 0 && strings.HasPrefix(raw, "data:") {
		if req.MIMEType == "" {
			req.MIMEType = raw[len("data:"):i]
		}
		raw = raw[i+len(";base64,"):]
	}
	img, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		h.fail(w, r, core.NewValidationError("image must be base64 encoded", "image"), start)
		return
	}

	label, err := h.Upstream.ClassifyGesture(r.Context(), img, req.MIMEType)
	if err != nil {
		h.fail(w, r, err, start)
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordClassification(string(label), "ok", time.Since(start))
	}
	writeJSON(w, http.StatusOK, classifyResponse{Label: string(label)})
}

// fail writes the canonical error body. Rate limit errors additionally get
// the Retry-After header and a top-level retryAfterMs field so thin clients
// can honor the delay without parsing the envelope.
func (h *ClassifyHandler) fail(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	coreErr, status := apierror.FromError(err, requestIDFrom(r))

	if ms, ok := core.IsRateLimit(err); ok {
		if h.Metrics != nil {
			h.Metrics.RecordUpstreamThrottle()
		}
		w.Header().Set("Retry-After", strconv.Itoa((ms+999)/1000))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(classifyResponse{
			Label:        string(gesture.LabelNone),
			RetryAfterMs: &ms,
			Error:        coreErr,
		})
	} else {
		writeCoreErrorJSON(w, coreErr, status)
	}

	if h.Metrics != nil {
		h.Metrics.RecordClassification(string(gesture.LabelNone), "error", time.Since(start))
		h.Metrics.RecordError("classify", string(coreErr.Type))
	}
	if h.Logger != nil && status >= 500 {
		h.Logger.Error("classify failed", "request_id", coreErr.RequestID, "error", coreErr.Message)
	}
}
