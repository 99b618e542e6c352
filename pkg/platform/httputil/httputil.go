// Package httputil holds the JSON response helpers shared by all handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "github.com/ThomasGates3/ai-powered-iam/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies; descriptions are short free text.
const maxBodyBytes = 64 << 10

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with the given status. Encoding failures are ignored
// because the status line has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its status and writes an ErrorResponse.
// Internal errors never expose their cause.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)
	message := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal || message == "" {
		message = http.StatusText(status)
		if code == dErrors.CodeInternal {
			message = "internal server error"
		}
	}
	WriteJSON(w, status, ErrorResponse{Error: string(code), Message: message})
}

// StatusFor returns the HTTP status for a domain error code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads a single JSON object from the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
