package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidPosition    = "INVALID_POSITION"
	CodeInvalidTeam        = "INVALID_TEAM"
	CodeInvalidGame        = "INVALID_GAME"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotEnrollmentOwner = "NOT_ENROLLMENT_OWNER"
	CodeGameOver           = "GAME_OVER"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeEnrollmentNotFound = "ENROLLMENT_NOT_FOUND"
	CodeGuestNotFound      = "GUEST_NOT_FOUND"
	CodePositionTaken      = "POSITION_TAKEN"
	CodeAlreadyEnrolled    = "ALREADY_ENROLLED"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Validation errors carry their detail in the message
	case errors.Is(err, model.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, model.ErrInvalidGame):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidGame, err.Error()}}
	case errors.Is(err, model.ErrInvalidPosition):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPosition, err.Error()}}
	case errors.Is(err, model.ErrInvalidTeam):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTeam, err.Error()}}

	// Authorization errors
	case errors.Is(err, model.ErrNotAdmin):
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Admin role required"}}
	case errors.Is(err, model.ErrNotEnrollmentOwner):
		return &httpError{http.StatusForbidden, APIError{CodeNotEnrollmentOwner, "Only the player who made the enrollment can remove it"}}
	case errors.Is(err, model.ErrGameOver):
		return &httpError{http.StatusForbidden, APIError{CodeGameOver, "This game is already over"}}

	// Not found errors
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrEnrollmentNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeEnrollmentNotFound, "Enrollment not found"}}
	case errors.Is(err, model.ErrGuestNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGuestNotFound, "Guest not found"}}

	// Conflict errors
	case errors.Is(err, model.ErrPositionTaken):
		return &httpError{http.StatusConflict, APIError{CodePositionTaken, "That position is already taken"}}
	case errors.Is(err, model.ErrAlreadyEnrolled):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyEnrolled, "This player is already enrolled in this game"}}
	case errors.Is(err, model.ErrEmailExists):
		return &httpError{http.StatusConflict, APIError{CodeEmailExists, "Email is already registered"}}

	// Map auth errors
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid email or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
