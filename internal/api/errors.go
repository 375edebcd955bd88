package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/middleware"
)

const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeAuthRequired      = "AUTHENTICATION_REQUIRED"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeResourceNotFound  = "RESOURCE_NOT_FOUND"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeConflict          = "CONFLICT"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeInternalError     = "INTERNAL_ERROR"
)

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// additional error context
type ErrorContext map[string]interface{}

// ErrorBody is the envelope every failed request answers with.
type ErrorBody struct {
	Error struct {
		Code      string        `json:"code"`
		Message   string        `json:"message"`
		Retryable bool          `json:"retryable,omitempty"`
		Details   []ErrorDetail `json:"details,omitempty"`
		Context   ErrorContext  `json:"context,omitempty"`
	} `json:"error"`
}

// builder pattern
type ErrorBuilder struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
	Details   []ErrorDetail
	Context   ErrorContext
}

func NewError(status int, code, message string) *ErrorBuilder {
	return &ErrorBuilder{Status: status, Code: code, Message: message}
}

func (e *ErrorBuilder) WithDetails(details []ErrorDetail) *ErrorBuilder {
	e.Details = details
	return e
}

func (e *ErrorBuilder) WithContext(context ErrorContext) *ErrorBuilder {
	e.Context = context
	return e
}

func (e *ErrorBuilder) AsRetryable() *ErrorBuilder {
	e.Retryable = true
	return e
}

func (e *ErrorBuilder) Create() ErrorBody {
	var body ErrorBody
	body.Error.Code = e.Code
	body.Error.Message = e.Message
	body.Error.Retryable = e.Retryable
	body.Error.Details = e.Details
	body.Error.Context = e.Context
	return body
}

func (e *ErrorBuilder) Write(w http.ResponseWriter) {
	writeJSON(w, e.Status, e.Create())
}

// builder pattern extensions

func Unauthorized(msg string) *ErrorBuilder {
	return NewError(http.StatusUnauthorized, CodeAuthRequired, msg)
}

func PermissionDenied(msg string) *ErrorBuilder {
	return NewError(http.StatusForbidden, CodePermissionDenied, msg)
}

func NotFound(resource string) *ErrorBuilder {
	return NewError(http.StatusNotFound, CodeResourceNotFound, resource+" not found")
}

func ValidationErr(msg string, details []ErrorDetail) *ErrorBuilder {
	return NewError(http.StatusBadRequest, CodeValidationError, msg).WithDetails(details)
}

func InternalError(msg string) *ErrorBuilder {
	return NewError(http.StatusInternalServerError, CodeInternalError, msg)
}

func ConflictErr(msg string) *ErrorBuilder {
	return NewError(http.StatusConflict, CodeConflict, msg)
}

// FromError maps a service error onto the envelope. Anything outside the
// apperr taxonomy is an internal error and its text is not exposed.
func FromError(err error) *ErrorBuilder {
	msg := apperr.Message(err)

	switch {
	case errors.Is(err, apperr.ErrValidationFailed):
		var details []ErrorDetail
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Field != "" {
			details = []ErrorDetail{{Field: ae.Field, Message: ae.Message}}
		}
		return ValidationErr(msg, details)
	case errors.Is(err, apperr.ErrAuthorizationDenied):
		return PermissionDenied(msg)
	case errors.Is(err, apperr.ErrIllegalTransition):
		return NewError(http.StatusConflict, CodeIllegalTransition, msg)
	case errors.Is(err, apperr.ErrNotFound):
		return NewError(http.StatusNotFound, CodeResourceNotFound, msg)
	case errors.Is(err, apperr.ErrConflict):
		return ConflictErr(msg).AsRetryable()
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return NewError(http.StatusServiceUnavailable, CodeStoreUnavailable, msg).AsRetryable()
	}
	return InternalError("An unexpected error occurred.")
}

// writeError logs err at a level matching its kind and writes the envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	b := FromError(err)
	logger := middleware.GetLoggerFromContext(r.Context())
	switch {
	case b.Status >= 500:
		logger.Error("Request failed", "code", b.Code, "error", err)
	case b.Status == http.StatusForbidden:
		logger.Warn("Request denied", "error", err)
	default:
		logger.Debug("Request rejected", "code", b.Code, "error", err)
	}
	b.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// decodeJSON reads the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		ValidationErr("Request body is required", nil).Write(w)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ValidationErr("Request body is not valid JSON", nil).Write(w)
		return false
	}
	return true
}
