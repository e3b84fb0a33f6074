package handlers

import (
	"log/slog"
	"net/http"

	"github.com/livedeck/livedeck/pkg/core/session"
)

type SlidesHandler struct {
	Source session.SlideSource
	Logger *slog.Logger
}

type slidesResponse struct {
	Slides []session.Slide `json:"slides"`
}

func (h *SlidesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}

	slides, err := h.Source.Slides(r.Context())
	if err != nil {
		coreErr, _ := writeError(w, r, err)
		if h.Logger != nil {
			h.Logger.Error("listing slides failed", "request_id", coreErr.RequestID, "error", err)
		}
		return
	}
	if slides == nil {
		slides = []session.Slide{}
	}
	writeJSON(w, http.StatusOK, slidesResponse{Slides: slides})
}
