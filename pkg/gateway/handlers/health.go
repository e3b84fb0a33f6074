package handlers

import (
	"net/http"

	"github.com/livedeck/livedeck/pkg/gateway/config"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type ReadyHandler struct {
	Config config.Config

	// UpstreamReady reports whether the Gemini client was constructed.
	UpstreamReady bool
	// StoreReady reports whether the slide catalog is reachable.
	StoreReady func(r *http.Request) bool
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK            bool     `json:"ok"`
		UpstreamReady bool     `json:"upstream_ready"`
		StoreReady    bool     `json:"store_ready"`
		LimitsEnabled bool     `json:"limits_enabled"`
		Issues        []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if !h.UpstreamReady {
		issues = append(issues, "gemini upstream not configured")
	}

	storeReady := true
	if h.StoreReady != nil {
		storeReady = h.StoreReady(r)
	}
	if !storeReady {
		issues = append(issues, "slide store unreachable")
	}

	if h.Config.MaxBodyBytes <= 0 || h.Config.MaxImageB64Bytes <= 0 || h.Config.MaxAudioBytes <= 0 {
		issues = append(issues, "body size budgets must be > 0")
	}
	if h.Config.ReadHeaderTimeout <= 0 || h.Config.ReadTimeout <= 0 || h.Config.UpstreamTimeout <= 0 {
		issues = append(issues, "timeouts must be > 0")
	}

	limitsEnabled := (h.Config.LimitRPS > 0 && h.Config.LimitBurst > 0) ||
		h.Config.LimitMaxConcurrentRequests > 0

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, readyResp{
		OK:            ok,
		UpstreamReady: h.UpstreamReady,
		StoreReady:    storeReady,
		LimitsEnabled: limitsEnabled,
		Issues:        issues,
	})
}
