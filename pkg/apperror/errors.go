package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet Lifecycle (WAL) ----

// Validation returns a WAL_001 validation error with a caller-facing message.
func Validation(message string) *AppError {
	return New("WAL_001", message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("WAL_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidTenantType() *AppError {
	return New("WAL_003", "Tenant is not an organization account", http.StatusUnprocessableEntity)
}

func ErrWalletExists() *AppError {
	return New("WAL_004", "Wallet already exists for this tenant", http.StatusConflict)
}

func ErrConfirmationRequired() *AppError {
	return New("WAL_005", "Deactivation requires explicit confirmation", http.StatusPreconditionRequired)
}

func ErrNoChanges() *AppError {
	return New("WAL_006", "Request resolves to no effective changes", http.StatusBadRequest)
}

func ErrConflict(err error) *AppError {
	return Wrap("WAL_007", "Concurrent modification detected", http.StatusConflict, err)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_003", "Insufficient privileges for this operation", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}
