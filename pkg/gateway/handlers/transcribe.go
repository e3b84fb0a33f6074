package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/livedeck/livedeck/pkg/core"
	"github.com/livedeck/livedeck/pkg/gateway/metrics"
)

// Transcriber is the upstream dependency of the transcription endpoint.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type TranscribeHandler struct {
	Upstream      Transcriber // nil when the Gemini key is missing
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	MaxBodyBytes  int64
	MaxAudioBytes int64
}

type transcribeRequest struct {
	Audio    string `json:"audio"`
	MIMEType string `json:"mimeType"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func (h *TranscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, http.MethodPost)
		return
	}

	if h.Upstream == nil {
		h.fail(w, r, core.NewConfigurationError("transcription is unavailable: GEMINI_API_KEY is not set"), start)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	audio, mimeType, err := h.readAudio(r)
	if err != nil {
		h.fail(w, r, err, start)
		return
	}
	if len(audio) == 0 {
		// Empty recordings happen when the mic permission flow races the
		// capture button; reject loudly so the client can tell the user.
		h.fail(w, r, core.NewValidationError("audio is required", "audio"), start)
		return
	}
	if h.MaxAudioBytes > 0 && int64(len(audio)) > h.MaxAudioBytes {
		h.fail(w, r, core.NewValidationError("audio exceeds size budget", "audio"), start)
		return
	}

	text, err := h.Upstream.Transcribe(r.Context(), audio, mimeType)
	if err != nil {
		h.fail(w, r, err, start)
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordTranscription("ok", time.Since(start))
	}
	writeJSON(w, http.StatusOK, transcribeResponse{Text: text})
}

// readAudio accepts three request encodings: JSON with base64 audio,
// multipart form with an "audio" file, or the raw recording as the body
// with its MIME type in Content-Type.
func (h *TranscribeHandler) readAudio(r *http.Request) ([]byte, string, error) {
	ct := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(ct)

	switch {
	case mediaType == "application/json":
		var req transcribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, "", core.NewValidationError("invalid json body: "+err.Error(), "")
		}
		raw := strings.TrimSpace(req.Audio)
		if raw == "" {
			return nil, req.MIMEType, nil
		}
		audio, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, "", core.NewValidationError("audio must be base64 encoded", "audio")
		}
		return audio, req.MIMEType, nil

	case mediaType == "multipart/form-data":
		file, header, err := r.FormFile("audio")
		if err != nil {
			return nil, "", core.NewValidationError("audio is required", "audio")
		}
		defer file.Close()
		audio, err := io.ReadAll(file)
		if err != nil {
			return nil, "", core.NewValidationError("reading audio part: "+err.Error(), "audio")
		}
		return audio, header.Header.Get("Content-Type"), nil

	default:
		audio, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", core.NewValidationError("reading request body: "+err.Error(), "")
		}
		return audio, mediaType, nil
	}
}

func (h *TranscribeHandler) fail(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	coreErr, status := writeError(w, r, err)
	if h.Metrics != nil {
		h.Metrics.RecordTranscription("error", time.Since(start))
		h.Metrics.RecordError("transcribe", string(coreErr.Type))
	}
	if h.Logger != nil && status >= 500 {
		h.Logger.Error("transcribe failed", "request_id", coreErr.RequestID, "error", coreErr.Message)
	}
}
