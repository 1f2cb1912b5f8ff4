package core

import "fmt"

// Error codes returned across the API surface.
const (
	ErrCodeNotFound   = "not_found"
	ErrCodeValidation = "validation"
	ErrCodeInternal   = "internal"
)

// Error is a structured error carried from the domain layer to API responses.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(kind, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found.", kind, id),
		Details: map[string]any{"id": id},
	}
}

// NewValidationError reports an invalid request payload.
func NewValidationError(message string, details map[string]any) *Error {
	return &Error{Code: ErrCodeValidation, Message: message, Details: details}
}

// NewInternalError reports an unexpected server-side failure.
func NewInternalError(message string) *Error {
	return &Error{Code: ErrCodeInternal, Message: message}
}
