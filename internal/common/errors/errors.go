// Package errors provides standardized error handling for the entitlement engine and its HTTP surface.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Application lifecycle errors
const (
	ErrCodeInvalidTransition       ErrorCode = "INVALID_TRANSITION"
	ErrCodeMissingInterviewDetails ErrorCode = "MISSING_INTERVIEW_DETAILS"
	ErrCodeAlreadyInState          ErrorCode = "ALREADY_IN_STATE"
	ErrCodeConcurrencyConflict     ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeApplicationNotFound     ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeDuplicateApplication    ErrorCode = "DUPLICATE_APPLICATION"
)

// Entitlement / disclosure errors
const (
	ErrCodeQuotaExhausted     ErrorCode = "QUOTA_EXHAUSTED"
	ErrCodePlanCatalogInvalid ErrorCode = "PLAN_CATALOG_INVALID"
	ErrCodeJobNotFound        ErrorCode = "JOB_NOT_FOUND"
	ErrCodeEmployeeNotFound   ErrorCode = "EMPLOYEE_NOT_FOUND"
)

// Request errors
const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
)

// Infrastructure errors
const (
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeQueryTimeout    ErrorCode = "QUERY_TIMEOUT"
	ErrCodeCacheError      ErrorCode = "CACHE_ERROR"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalError   ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeExternalTimeout ErrorCode = "TIMEOUT_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is reports whether target is a StandardError carrying the same code, so
// sentinel comparisons work through fmt.Errorf("%w") wrapping.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns e with key set in its metadata map.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons. Only the Code field is significant.
var (
	ErrInvalidTransition       = &StandardError{Code: ErrCodeInvalidTransition}
	ErrMissingInterviewDetails = &StandardError{Code: ErrCodeMissingInterviewDetails}
	ErrAlreadyInState          = &StandardError{Code: ErrCodeAlreadyInState}
	ErrConcurrencyConflict     = &StandardError{Code: ErrCodeConcurrencyConflict}
	ErrApplicationNotFound     = &StandardError{Code: ErrCodeApplicationNotFound}
	ErrDuplicateApplication    = &StandardError{Code: ErrCodeDuplicateApplication}
	ErrQuotaExhausted          = &StandardError{Code: ErrCodeQuotaExhausted}
	ErrJobNotFound             = &StandardError{Code: ErrCodeJobNotFound}
	ErrEmployeeNotFound        = &StandardError{Code: ErrCodeEmployeeNotFound}
	ErrValidationFailed        = &StandardError{Code: ErrCodeValidationFailed}
	ErrDatabase                = &StandardError{Code: ErrCodeDatabaseError}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidTransitionError creates a non-retryable illegal-edge error.
func NewInvalidTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Status transition is not allowed",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Metadata:  map[string]interface{}{"from": from, "to": to},
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingInterviewDetailsError lists the interview fields that were absent.
func NewMissingInterviewDetailsError(missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingInterviewDetails,
		Message:   "Interview date, time and location are required",
		Details:   fmt.Sprintf("missing: %s", strings.Join(missing, ", ")),
		Retryable: false,
		Metadata:  map[string]interface{}{"missing": missing},
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyInStateError creates a benign no-op transition error.
func NewAlreadyInStateError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyInState,
		Message:   "Application is already in the requested status",
		Details:   fmt.Sprintf("status: %s", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrencyConflictError reports an optimistic-lock version mismatch.
func NewConcurrencyConflictError(applicationID string, expectedVersion int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrencyConflict,
		Message:   "Application was modified concurrently",
		Details:   fmt.Sprintf("applicationId: %s, expectedVersion: %d", applicationID, expectedVersion),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFoundError creates a non-retryable lookup error.
func NewApplicationNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateApplicationError creates a non-retryable duplicate application error.
func NewDuplicateApplicationError(jobID, employeeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "Application already exists",
		Details:   fmt.Sprintf("jobId: %s, employeeId: %s", jobID, employeeID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQuotaExhaustedError is surfaced with an upgrade call-to-action.
func NewQuotaExhaustedError(employerID string, total int) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuotaExhausted,
		Message:   "Contact view limit reached for the current plan. Upgrade to view more contacts",
		Details:   fmt.Sprintf("employerId: %s, quotaTotal: %d", employerID, total),
		Retryable: false,
		Metadata:  map[string]interface{}{"upgrade_required": true},
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanCatalogInvalidError reports a misconfigured plan catalog.
func NewPlanCatalogInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanCatalogInvalid,
		Message:   "Plan catalog is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "Job not found",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewEmployeeNotFoundError(employeeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmployeeNotFound,
		Message:   "Employee not found",
		Details:   fmt.Sprintf("employeeId: %s", employeeID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a client-fixable request validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Authentication required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewForbiddenError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "Operation not permitted for this account",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitedError(accountID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests",
		Details:   fmt.Sprintf("accountId: %s", accountID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseError creates a retryable database error.
func NewDatabaseError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseError,
		Message:   "Database operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheError,
		Message:   "Cache operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalError,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Error Conversion to HTTP
// ==========================

// HTTPStatusMapping maps internal error codes to HTTP status codes.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeInvalidTransition:       http.StatusBadRequest,
	ErrCodeMissingInterviewDetails: http.StatusBadRequest,
	ErrCodeAlreadyInState:          http.StatusBadRequest,
	ErrCodeValidationFailed:        http.StatusBadRequest,
	ErrCodeUnauthorized:            http.StatusUnauthorized,
	ErrCodeQuotaExhausted:          http.StatusPaymentRequired,
	ErrCodeForbidden:               http.StatusForbidden,
	ErrCodeApplicationNotFound:     http.StatusNotFound,
	ErrCodeJobNotFound:             http.StatusNotFound,
	ErrCodeEmployeeNotFound:        http.StatusNotFound,
	ErrCodeConcurrencyConflict:     http.StatusConflict,
	ErrCodeDuplicateApplication:    http.StatusConflict,
	ErrCodeRateLimited:             http.StatusTooManyRequests,
	ErrCodeQueryTimeout:            http.StatusGatewayTimeout,
	ErrCodeExternalTimeout:         http.StatusGatewayTimeout,
	ErrCodeDatabaseError:           http.StatusServiceUnavailable,
	ErrCodeCacheError:              http.StatusServiceUnavailable,
	ErrCodeExternalError:           http.StatusBadGateway,
}

// HTTPStatus returns the HTTP status for code, defaulting to 500.
func HTTPStatus(code ErrorCode) int {
	if status, ok := HTTPStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetRetryCount returns the recommended automatic retry count for a code.
// Domain faults are deterministic and never retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseError,
		ErrCodeCacheError,
		ErrCodeExternalError:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeExternalTimeout:
		return 2

	default:
		return 0
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "STATE") ||
		strings.Contains(codeStr, "INTERVIEW") || strings.Contains(codeStr, "APPLICATION"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "QUOTA") || strings.Contains(codeStr, "PLAN"):
		return "ENTITLEMENT"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "CONFLICT"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "UNAUTHORIZED") || strings.Contains(codeStr, "FORBIDDEN") ||
		strings.Contains(codeStr, "RATE"):
		return "ACCESS"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "NOT_FOUND"):
		return "REQUEST"
	default:
		return "OTHER"
	}
}
