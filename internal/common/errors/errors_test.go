package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type recordingLogger struct {
	warns  []string
	errors []string
}

func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.errors = append(l.errors, msg) }

// ==========================
// StandardError
// ==========================

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("reveal: %w", NewQuotaExhaustedError("employer-1", 3))

	assert.True(t, stderrors.Is(err, ErrQuotaExhausted))
	assert.False(t, stderrors.Is(err, ErrJobNotFound))
}

func TestStandardError_Error(t *testing.T) {
	assert.Equal(t, "StandardError[JOB_NOT_FOUND]: Job not found (jobId: j1)", NewJobNotFoundError("j1").Error())
}

func TestNormalize(t *testing.T) {
	std := NewAlreadyInStateError("applied")
	assert.Same(t, std, Normalize(fmt.Errorf("wrap: %w", std)))

	assert.Equal(t, ErrCodeQueryTimeout, Normalize(context.DeadlineExceeded).Code)

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternalError, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestRetryPolicy(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		retries int
	}{
		{ErrCodeDatabaseError, 3},
		{ErrCodeCacheError, 3},
		{ErrCodeExternalError, 3},
		{ErrCodeQueryTimeout, 2},
		{ErrCodeExternalTimeout, 2},
		{ErrCodeQuotaExhausted, 0},
		{ErrCodeInvalidTransition, 0},
		{ErrCodeConcurrencyConflict, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retries, GetRetryCount(tt.code))
			assert.Equal(t, tt.retries > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusPaymentRequired, HTTPStatus(ErrCodeQuotaExhausted))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrCodeConcurrencyConflict))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeApplicationNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus("SOMETHING_NEW"))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "LIFECYCLE", GetErrorCategory(ErrCodeInvalidTransition))
	assert.Equal(t, "ENTITLEMENT", GetErrorCategory(ErrCodeQuotaExhausted))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeConcurrencyConflict))
	assert.Equal(t, "ACCESS", GetErrorCategory(ErrCodeRateLimited))
	assert.Equal(t, "REQUEST", GetErrorCategory(ErrCodeJobNotFound))
}

// ==========================
// ErrorHandler
// ==========================

func TestHandleHTTPError_ClientFault(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/employer/applications/a/view-contact", nil)

	h.HandleHTTPError(w, r, "req-1", NewQuotaExhaustedError("employer-1", 3))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeQuotaExhausted, body.Error.Code)
	assert.Equal(t, "req-1", body.Error.RequestID)
	assert.Equal(t, true, body.Error.Metadata["upgrade_required"])
	assert.Len(t, log.warns, 1)
	assert.Empty(t, log.errors)
}

func TestHandleHTTPError_InternalHidesDetails(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)
	w := httptest.NewRecorder()

	h.HandleHTTPError(w, httptest.NewRequest(http.MethodGet, "/", nil), "req-2", stderrors.New("pq: secret table"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret table")
	assert.Len(t, log.errors, 1)
}
