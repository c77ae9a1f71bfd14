package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when the caller lacks the required role.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAccountLocked is returned when too many failed logins locked the account.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrAccountInactive is returned when the user account is deactivated.
	ErrAccountInactive = errors.New("account is not active")

	// ErrRegistrationClosed is returned when an event no longer accepts registrations.
	ErrRegistrationClosed = errors.New("registration is closed for this event")
	// ErrAlreadyRegistered is returned when the user already holds an active registration.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrNotRegistered is returned when cancelling without an active registration.
	ErrNotRegistered = errors.New("not registered for this event")
	// ErrNotCheckedInable is returned when check-in is attempted on a non-registered row.
	ErrNotCheckedInable = errors.New("registration cannot be checked in")

	// ErrAlreadyApplied is returned on duplicate membership or job applications.
	ErrAlreadyApplied = errors.New("application already submitted")
	// ErrApplicationReviewed is returned when re-reviewing a settled application.
	ErrApplicationReviewed = errors.New("application already reviewed")
	// ErrApplicationsClosed is returned when a job posting no longer accepts applications.
	ErrApplicationsClosed = errors.New("applications are closed for this posting")

	// ErrInvalidAmount is returned when a payment amount is not positive.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrPaymentSettled is returned when completing a payment that is not pending.
	ErrPaymentSettled = errors.New("payment already settled")

	// ErrThreadLocked is returned when replying to a locked thread.
	ErrThreadLocked = errors.New("thread is locked")
	// ErrCircularFolder is returned when a folder move would create a cycle.
	ErrCircularFolder = errors.New("circular folder reference")
	// ErrNotParticipant is returned on access to a conversation the user is not part of.
	ErrNotParticipant = errors.New("not a participant of this conversation")
	// ErrSelfConversation is returned when opening a conversation with oneself.
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
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
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrPermissionDenied):
		return NewHTTPError(http.StatusForbidden, err.Error(), "PERMISSION_DENIED")
	case errors.Is(err, ErrAccountLocked):
		return NewHTTPError(http.StatusTooManyRequests, err.Error(), "ACCOUNT_LOCKED")
	case errors.Is(err, ErrAccountInactive):
		return NewHTTPError(http.StatusForbidden, err.Error(), "ACCOUNT_INACTIVE")
	case errors.Is(err, ErrRegistrationClosed):
		return NewHTTPError(http.StatusConflict, err.Error(), "REGISTRATION_CLOSED")
	case errors.Is(err, ErrAlreadyRegistered):
		return NewHTTPError(http.StatusConflict, err.Error(), "ALREADY_REGISTERED")
	case errors.Is(err, ErrNotRegistered):
		return NewHTTPError(http.StatusConflict, err.Error(), "NOT_REGISTERED")
	case errors.Is(err, ErrNotCheckedInable):
		return NewHTTPError(http.StatusConflict, err.Error(), "INVALID_CHECKIN")
	case errors.Is(err, ErrAlreadyApplied):
		return NewHTTPError(http.StatusConflict, err.Error(), "ALREADY_APPLIED")
	case errors.Is(err, ErrApplicationReviewed):
		return NewHTTPError(http.StatusConflict, err.Error(), "ALREADY_REVIEWED")
	case errors.Is(err, ErrApplicationsClosed):
		return NewHTTPError(http.StatusConflict, err.Error(), "APPLICATIONS_CLOSED")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_AMOUNT")
	case errors.Is(err, ErrPaymentSettled):
		return NewHTTPError(http.StatusConflict, err.Error(), "PAYMENT_SETTLED")
	case errors.Is(err, ErrThreadLocked):
		return NewHTTPError(http.StatusConflict, err.Error(), "THREAD_LOCKED")
	case errors.Is(err, ErrCircularFolder):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "CIRCULAR_FOLDER")
	case errors.Is(err, ErrNotParticipant):
		return NewHTTPError(http.StatusForbidden, err.Error(), "NOT_PARTICIPANT")
	case errors.Is(err, ErrSelfConversation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "SELF_CONVERSATION")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
