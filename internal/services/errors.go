package services

import (
	"errors"
	"fmt"
	"net/http"

	"memorybox/internal/badges"
	"memorybox/internal/repositories"
	"memorybox/internal/validation"
)

// ===============================
// ERROR TYPES
// ===============================

// ServiceError represents a structured service error
type ServiceError struct {
	Type       string                  `json:"type"`
	Message    string                  `json:"message"`
	Code       string                  `json:"code,omitempty"`
	Fields     []validation.FieldError `json:"fields,omitempty"`
	Details    map[string]interface{}  `json:"details,omitempty"`
	StatusCode int                     `json:"-"`
	Cause      error                   `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation error. Field details are lifted
// from cause when it came from the validation package.
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "VALIDATION_ERROR",
		Message:    message,
		Fields:     validation.Fields(cause),
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewBadRequestError creates a malformed request error
func NewBadRequestError(message string) *ServiceError {
	return &ServiceError{
		Type:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *ServiceError {
	return &ServiceError{
		Type:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *ServiceError {
	return &ServiceError{
		Type:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Type:       "RATE_LIMIT",
		Message:    message,
		Details:    details,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(message string) *ServiceError {
	return &ServiceError{
		Type:       "SERVICE_UNAVAILABLE",
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// EntityNotFoundError creates a not found error for a typed entity
func EntityNotFoundError(entityType string, id int64) *ServiceError {
	err := NewNotFoundError(fmt.Sprintf("%s not found", entityType))
	err.Code = "ENTITY_NOT_FOUND"
	err.Details = map[string]interface{}{"entity": entityType, "id": id}
	return err
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError from err, or creates a generic one
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return NewInternalError("an unexpected error occurred", err)
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr) && serviceErr.Type == errorType
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return IsErrorType(err, "NOT_FOUND")
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsErrorType(err, "VALIDATION_ERROR")
}

// ===============================
// TRANSLATION FROM LOWER LAYERS
// ===============================

// fromBadgeError maps the badge engine's error kinds onto the envelope
func fromBadgeError(err error, groupID int64) *ServiceError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badges.ErrInvalidInput):
		se := NewBadRequestError("groupId must be a positive integer")
		se.Cause = err
		return se
	case errors.Is(err, badges.ErrNotFound):
		se := EntityNotFoundError("group", groupID)
		se.Cause = err
		return se
	case badges.IsStorageFailure(err):
		return NewInternalError("badge storage is unavailable", err)
	default:
		return GetServiceError(err)
	}
}

// fromRepositoryError maps repository errors for an entity lookup or mutation
func fromRepositoryError(err error, entityType string, id int64, action string) error {
	if err == nil {
		return nil
	}
	if repositories.IsNotFound(err) {
		se := EntityNotFoundError(entityType, id)
		se.Cause = err
		return se
	}
	return NewInternalError(fmt.Sprintf("failed to %s %s", action, entityType), err)
}
