package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alarmkit/alarmd/internal/core"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error detail inside an ErrorResponse.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError writes a *core.Error with its mapped HTTP status. Errors that
// are not *core.Error become opaque internal errors.
func WriteError(w http.ResponseWriter, err error) {
	var cerr *core.Error
	if !errors.As(err, &cerr) {
		slog.Error("unclassified handler error", "error", err)
		cerr = core.NewInternalError("internal error")
	}
	WriteJSON(w, statusFor(cerr.Code), ErrorResponse{Error: ErrorBody{
		Code:      cerr.Code,
		Message:   cerr.Message,
		Details:   cerr.Details,
		RequestID: w.Header().Get("X-Request-Id"),
	}})
}

func statusFor(code string) int {
	switch code {
	case core.ErrCodeNotFound:
		return http.StatusNotFound
	case core.ErrCodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
