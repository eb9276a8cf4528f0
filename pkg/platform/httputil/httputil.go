// Package httputil centralizes JSON response and error envelope writing so
// every handler produces the same wire shape.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "trustbadge/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:   http.StatusBadRequest,
	dErrors.CodeInvalidInput: http.StatusBadRequest,
	dErrors.CodeUnauthorized: http.StatusUnauthorized,
	dErrors.CodeForbidden:    http.StatusForbidden,
	dErrors.CodeNotFound:     http.StatusNotFound,
	dErrors.CodeConflict:     http.StatusConflict,
	dErrors.CodeTimeout:      http.StatusGatewayTimeout,
	dErrors.CodeUnavailable:  http.StatusServiceUnavailable,
	dErrors.CodeInternal:     http.StatusInternalServerError,
}

// ToHTTPStatus maps a domain error code onto an HTTP status.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError renders the error envelope. Internal errors omit the description
// so store/db details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = dErrors.MessageOf(err)
	}
	WriteJSON(w, ToHTTPStatus(code), body)
}

// WriteJSON renders v with the given status and a JSON content type.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
