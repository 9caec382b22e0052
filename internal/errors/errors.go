package errors

import (
	"context"
	"errors"
	"net/http"
)

// Kind classifies a domain error for transport mapping.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindUnavailable    Kind = "unavailable"
	KindInternal       Kind = "internal"
)

// DomainError is a classified error safe to show to API clients.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func newDomainError(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

var (
	// ErrValidation is the generic bad-input error used for malformed request bodies.
	ErrValidation = newDomainError(KindValidation, "VALIDATION_ERROR", "invalid request")
	// ErrWeakPassword is returned when a password is shorter than the minimum length.
	ErrWeakPassword = newDomainError(KindValidation, "WEAK_PASSWORD", "password must be at least 6 characters")
	// ErrEmptyText is returned for a blank or oversized comment.
	ErrEmptyText = newDomainError(KindValidation, "EMPTY_TEXT", "text must be between 1 and 500 characters")
	// ErrInvalidContent is returned for blank or oversized post content.
	ErrInvalidContent = newDomainError(KindValidation, "INVALID_CONTENT", "content must be between 1 and 2000 characters")
	ErrInvalidCategory = newDomainError(KindValidation, "INVALID_CATEGORY", "invalid category")
	ErrInvalidScore    = newDomainError(KindValidation, "INVALID_SCORE", "score must be between 0 and 5")
	ErrInvalidReason   = newDomainError(KindValidation, "INVALID_REASON", "invalid report reason")
	ErrInvalidRole     = newDomainError(KindValidation, "INVALID_ROLE", "invalid role")
	ErrInvalidPeriod   = newDomainError(KindValidation, "INVALID_PERIOD", "invalid period")
	ErrInvalidID       = newDomainError(KindValidation, "INVALID_ID", "invalid id")
	ErrSelfLike        = newDomainError(KindValidation, "SELF_LIKE_NOT_ALLOWED", "liking your own post is not allowed")
	ErrSelfChange      = newDomainError(KindValidation, "SELF_CHANGE_NOT_ALLOWED", "cannot change your own role or status")
	ErrSelfFollow      = newDomainError(KindValidation, "SELF_FOLLOW_NOT_ALLOWED", "cannot follow yourself")

	// ErrInvalidCredentials covers unknown email, wrong password and deactivated account alike.
	ErrInvalidCredentials = newDomainError(KindAuthentication, "INVALID_CREDENTIALS", "invalid email or password")
	ErrNoToken            = newDomainError(KindAuthentication, "NO_TOKEN", "authentication required")
	ErrInvalidToken       = newDomainError(KindAuthentication, "INVALID_TOKEN", "invalid or expired token")

	// ErrForbidden is the single externally visible authorization failure.
	ErrForbidden = newDomainError(KindAuthorization, "FORBIDDEN", "access denied")
	ErrNotAdmin  = newDomainError(KindAuthorization, "NOT_ADMIN", "admin access required")

	ErrDuplicateEmail    = newDomainError(KindConflict, "DUPLICATE_EMAIL", "email already registered")
	ErrDuplicateUsername = newDomainError(KindConflict, "DUPLICATE_USERNAME", "username already taken")
	ErrAlreadyLiked      = newDomainError(KindConflict, "ALREADY_LIKED", "post already liked")
	ErrNotLiked          = newDomainError(KindConflict, "NOT_LIKED", "post not liked")
	ErrAlreadyReported   = newDomainError(KindConflict, "ALREADY_REPORTED", "post already reported")
	ErrAlreadyFollowing  = newDomainError(KindConflict, "ALREADY_FOLLOWING", "already following this user")
	ErrNotFollowing      = newDomainError(KindConflict, "NOT_FOLLOWING", "not following this user")

	ErrUserNotFound = newDomainError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrPostNotFound = newDomainError(KindNotFound, "POST_NOT_FOUND", "post not found")

	// ErrStoreUnavailable marks a store call that hit its deadline. Retryable.
	ErrStoreUnavailable = newDomainError(KindUnavailable, "STORE_UNAVAILABLE", "service temporarily unavailable")

	ErrInternal = newDomainError(KindInternal, "INTERNAL_ERROR", "internal server error")
)

// ErrorResponse is the envelope written for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
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
		Success: false,
		Message: e.Message,
		Code:    e.Code,
	}
}

var kindStatus = map[Kind]int{
	KindValidation:     http.StatusBadRequest,
	KindAuthentication: http.StatusUnauthorized,
	KindAuthorization:  http.StatusForbidden,
	KindConflict:       http.StatusConflict,
	KindNotFound:       http.StatusNotFound,
	KindUnavailable:    http.StatusServiceUnavailable,
	KindInternal:       http.StatusInternalServerError,
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything unclassified
// becomes an opaque internal error so store details never leak.
func MapErrorToHTTP(err error) *HTTPError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		status, ok := kindStatus[domainErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return NewHTTPError(status, domainErr.Message, domainErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return MapErrorToHTTP(ErrStoreUnavailable)
	}
	return NewHTTPError(http.StatusInternalServerError, ErrInternal.Message, ErrInternal.Code)
}

// KindOf returns the classification of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}
	return KindInternal
}
