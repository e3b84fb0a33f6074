package handlers

import (
	"net/http"

	"github.com/livedeck/livedeck/pkg/core"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeCoreErrorJSON(w, &core.Error{
		Type:      core.ErrValidation,
		Message:   "not found",
		Code:      "not_found",
		RequestID: requestIDFrom(r),
	}, http.StatusNotFound)
}
