package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := New("WAL_001", "bad input", http.StatusBadRequest)
	assert.Equal(t, "[WAL_001] bad input", e.Error())

	wrapped := Wrap("SYS_001", "db down", http.StatusInternalServerError, fmt.Errorf("conn refused"))
	assert.Equal(t, "[SYS_001] db down: conn refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("row vanished")
	e := ErrConflict(inner)
	assert.ErrorIs(t, e, inner)
}

func TestErrorHTTPStatuses(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
		code   string
	}{
		{Validation("missing public key"), http.StatusBadRequest, "WAL_001"},
		{ErrNotFound("wallet"), http.StatusNotFound, "WAL_002"},
		{ErrInvalidTenantType(), http.StatusUnprocessableEntity, "WAL_003"},
		{ErrWalletExists(), http.StatusConflict, "WAL_004"},
		{ErrConfirmationRequired(), http.StatusPreconditionRequired, "WAL_005"},
		{ErrNoChanges(), http.StatusBadRequest, "WAL_006"},
		{ErrConflict(errors.New("x")), http.StatusConflict, "WAL_007"},
		{ErrInvalidCredentials(), http.StatusUnauthorized, "AUTH_001"},
		{ErrInvalidToken(), http.StatusUnauthorized, "AUTH_002"},
		{ErrForbidden(), http.StatusForbidden, "AUTH_003"},
		{ErrRateLimitExceeded(), http.StatusTooManyRequests, "RATE_001"},
		{InternalError(errors.New("x")), http.StatusInternalServerError, "SYS_001"},
		{ErrEncryptionFailure(errors.New("x")), http.StatusInternalServerError, "SYS_002"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus, tc.code)
		assert.Equal(t, tc.code, tc.err.Code)
	}
}

func TestErrNotFound_MessageContainsEntity(t *testing.T) {
	e := ErrNotFound("tenant")
	assert.Contains(t, e.Message, "tenant")
}
