package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/livedeck/livedeck/pkg/core"
	"github.com/livedeck/livedeck/pkg/gateway/apierror"
	"github.com/livedeck/livedeck/pkg/gateway/mw"
)

func requestIDFrom(r *http.Request) string {
	id, _ := mw.RequestIDFrom(r.Context())
	return id
}

func writeError(w http.ResponseWriter, r *http.Request, err error) (*core.Error, int) {
	coreErr, status := apierror.FromError(err, requestIDFrom(r))
	writeCoreErrorJSON(w, coreErr, status)
	return coreErr, status
}

func writeCoreErrorJSON(w http.ResponseWriter, coreErr *core.Error, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apierror.Envelope{Error: coreErr})
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	writeCoreErrorJSON(w, &core.Error{
		Type:      core.ErrValidation,
		Message:   "method not allowed",
		Code:      "method_not_allowed",
		RequestID: requestIDFrom(r),
	}, http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
