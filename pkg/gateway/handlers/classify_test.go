package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/livedeck/livedeck/pkg/core"
	"github.com/livedeck/livedeck/pkg/core/gesture"
)

type fakeClassifier struct {
	label    gesture.Label
	err      error
	gotImage []byte
	gotMIME  string
}

func (f *fakeClassifier) ClassifyGesture(ctx context.Context, image []byte, mimeType string) (gesture.Label, error) {
	f.gotImage = image
	f.gotMIME = mimeType
	if f.err != nil {
		return gesture.LabelNone, f.err
	}
	return f.label, nil
}

func classifyBody(t *testing.T, image, mime string) *strings.Reader {
	t.Helper()
	b, err := json.Marshal(map[string]string{"image": image, "mimeType": mime})
	if err != nil {
		t.Fatal(err)
	}
	return strings.NewReader(string(b))
}

func TestClassify_Success(t *testing.T) {
	up := &fakeClassifier{label: gesture.LabelThumbsUp}
	h := &ClassifyHandler{Upstream: up, MaxBodyBytes: 1 << 20, MaxImageB64Bytes: 1 << 20}

	img := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/classify-gesture-image", classifyBody(t, img, "image/jpeg"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	var resp classifyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Label != "thumbs_up" {
		t.Errorf("label=%q", resp.Label)
	}
	if string(up.gotImage) != "jpeg-bytes" || up.gotMIME != "image/jpeg" {
		t.Errorf("upstream got image=%q mime=%q", up.gotImage, up.gotMIME)
	}
}

func TestClassify_DataURL(t *testing.T) {
	up := &fakeClassifier{label: gesture.LabelHello}
	h := &ClassifyHandler{Upstream: up, MaxBodyBytes: 1 << 20, MaxImageB64Bytes: 1 << 20}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/classify-gesture-image", classifyBody(t, dataURL, ""))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if string(up.gotImage) != "png-bytes" || up.gotMIME != "image/png" {
		t.Errorf("upstream got image=%q mime=%q", up.gotImage, up.gotMIME)
	}
}

func TestClassify_MissingImage400(t *testing.T) {
	h := &ClassifyHandler{Upstream: &fakeClassifier{}, MaxBodyBytes: 1 << 20, MaxImageB64Bytes: 1 << 20}

	req := httptest.NewRequest(http.MethodPost, "/classify-gesture-image", classifyBody(t, "", ""))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"param":"image"`) {
		t.Errorf("body=%q", rr.Body.String())
	}
}

func TestClassify_UpstreamThrottle429(t *testing.T) {
	up := &fakeClassifier{err: core.NewRateLimitError("upstream model rate limited", 10_000)}
	h := &ClassifyHandler{Upstream: up, MaxBodyBytes: 1 << 20, MaxImageB64Bytes: 1 << 20}

	img := base64.StdEncoding.EncodeToString([]byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/classify-gesture-image", classifyBody(t, img, ""))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Retry-After"); got != "10" {
		t.Errorf("Retry-After=%q", got)
	}
	var resp classifyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RetryAfterMs == nil || *resp.RetryAfterMs != 10_000 {
		t.Errorf("retryAfterMs=%v", resp.RetryAfterMs)
	}
	if resp.Error == nil || resp.Error.Type != core.ErrRateLimit {
		t.Errorf("error=%+v", resp.Error)
	}
}

func TestClassify_NoUpstream500(t *testing.T) {
	h := &ClassifyHandler{MaxBodyBytes: 1 << 20, MaxImageB64Bytes: 1 << 20}

	img := base64.StdEncoding.EncodeToString([]byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/classify-gesture-image", classifyBody(t, img, ""))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "GEMINI_API_KEY") {
		t.Errorf("body should name the missing configuration: %q", rr.Body.String())
	}
}

func TestClassify_MethodNotAllowed(t *testing.T) {
	h := &ClassifyHandler{Upstream: &fakeClassifier{}, MaxBodyBytes: 1 << 20, MaxImageB64Bytes: 1 << 20}

	req := httptest.NewRequest(http.MethodGet, "/classify-gesture-image", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q", allow)
	}
}

func TestClassify_OversizedImage400(t *testing.T) {
	h := &ClassifyHandler{Upstream: &fakeClassifier{}, MaxBodyBytes: 1 << 20, MaxImageB64Bytes: 8}

	img := base64.StdEncoding.EncodeToString([]byte("a much bigger payload"))
	req := httptest.NewRequest(http.MethodPost, "/classify-gesture-image", classifyBody(t, img, ""))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}
