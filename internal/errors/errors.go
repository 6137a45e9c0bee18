package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	// The two causes are never distinguished.
	ErrInvalidCredentials = errors.New("Invalid email/password combination.")
	// ErrUserNotFound is returned when a user id matches no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUserID is returned when a route identifier is not a user id.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidRole is returned when a role outside the known set is requested.
	ErrInvalidRole = errors.New("invalid role")
	// ErrNotAuthenticated is returned when a request carries no live session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotAuthorized is returned when the session role is insufficient.
	ErrNotAuthorized = errors.New("Not Authorized")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrInvalidUserID):
		return NewHTTPError(http.StatusNotFound, ErrInvalidUserID.Error(), "INVALID_USER_ID")
	case errors.Is(err, ErrInvalidRole):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidRole.Error(), "INVALID_ROLE")
	case errors.Is(err, ErrNotAuthenticated):
		return NewHTTPError(http.StatusUnauthorized, ErrNotAuthenticated.Error(), "NOT_AUTHENTICATED")
	case errors.Is(err, ErrNotAuthorized):
		return NewHTTPError(http.StatusForbidden, ErrNotAuthorized.Error(), "NOT_AUTHORIZED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
