package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/livedeck/livedeck/pkg/core"
)

type fakeTranscriber struct {
	text     string
	err      error
	gotAudio []byte
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	f.gotAudio = audio
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func transcribeBody(t *testing.T, audio, mime string) *strings.Reader {
	t.Helper()
	b, err := json.Marshal(map[string]string{"audio": audio, "mimeType": mime})
	if err != nil {
		t.Fatal(err)
	}
	return strings.NewReader(string(b))
}

func TestTranscribe_JSONSuccess(t *testing.T) {
	up := &fakeTranscriber{text: "make it rain glitter"}
	h := &TranscribeHandler{Upstream: up, MaxBodyBytes: 1 << 20, MaxAudioBytes: 1 << 20}

	audio := base64.StdEncoding.EncodeToString([]byte("opus-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", transcribeBody(t, audio, "audio/webm"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	var resp transcribeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Text != "make it rain glitter" {
		t.Errorf("text=%q", resp.Text)
	}
	if string(up.gotAudio) != "opus-bytes" {
		t.Errorf("upstream got %q", up.gotAudio)
	}
}

func TestTranscribe_RawBodySuccess(t *testing.T) {
	up := &fakeTranscriber{text: "dim the lights"}
	h := &TranscribeHandler{Upstream: up, MaxBodyBytes: 1 << 20, MaxAudioBytes: 1 << 20}

	req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("raw-opus"))
	req.Header.Set("Content-Type", "audio/ogg")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if string(up.gotAudio) != "raw-opus" {
		t.Errorf("upstream got %q", up.gotAudio)
	}
}

func TestTranscribe_MultipartSuccess(t *testing.T) {
	up := &fakeTranscriber{text: "fade to black"}
	h := &TranscribeHandler{Upstream: up, MaxBodyBytes: 1 << 20, MaxAudioBytes: 1 << 20}

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	part, err := mp.CreateFormFile("audio", "clip.webm")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("webm-bytes")); err != nil {
		t.Fatal(err)
	}
	if err := mp.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if string(up.gotAudio) != "webm-bytes" {
		t.Errorf("upstream got %q", up.gotAudio)
	}
}

func TestTranscribe_EmptyAudio400(t *testing.T) {
	h := &TranscribeHandler{Upstream: &fakeTranscriber{}, MaxBodyBytes: 1 << 20, MaxAudioBytes: 1 << 20}

	req := httptest.NewRequest(http.MethodPost, "/transcribe", transcribeBody(t, "", ""))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"param":"audio"`) {
		t.Errorf("body=%q", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), `"text"`) {
		t.Errorf("error body must not carry a transcript field: %q", rr.Body.String())
	}
}

func TestTranscribe_UpstreamError500Descriptive(t *testing.T) {
	up := &fakeTranscriber{err: core.NewConfigurationError("upstream rejected credentials: invalid key")}
	h := &TranscribeHandler{Upstream: up, MaxBodyBytes: 1 << 20, MaxAudioBytes: 1 << 20}

	audio := base64.StdEncoding.EncodeToString([]byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", transcribeBody(t, audio, ""))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "rejected credentials") {
		t.Errorf("body should describe the failure: %q", rr.Body.String())
	}
}

func TestTranscribe_BoundaryError500(t *testing.T) {
	up := &fakeTranscriber{err: core.NewBoundaryError("upstream unavailable")}
	h := &TranscribeHandler{Upstream: up, MaxBodyBytes: 1 << 20, MaxAudioBytes: 1 << 20}

	audio := base64.StdEncoding.EncodeToString([]byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", transcribeBody(t, audio, ""))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestTranscribe_MethodNotAllowed(t *testing.T) {
	h := &TranscribeHandler{Upstream: &fakeTranscriber{}, MaxBodyBytes: 1 << 20, MaxAudioBytes: 1 << 20}

	req := httptest.NewRequest(http.MethodGet, "/transcribe", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q", allow)
	}
}
