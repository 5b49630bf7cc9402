package validation

import (
	"errors"
	"testing"

	apperrors "hiring-entitlements/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusUpdateSchema(t *testing.T) {
	s := MustSchema(StatusUpdateSchema)

	tests := []struct {
		name      string
		body      string
		valid     bool
		field     string
		errorCode string
	}{
		{name: "status only", body: `{"status":"shortlisted"}`, valid: true},
		{name: "interview payload", body: `{"status":"interview_scheduled","interview_date":"2026-11-02","interview_time":"10:00","interview_location":"HQ"}`, valid: true},
		{name: "missing status", body: `{}`, field: "status", errorCode: "REQUIRED_FIELD_MISSING"},
		{name: "unknown status", body: `{"status":"hired"}`, field: "status", errorCode: "INVALID_ENUM_VALUE"},
		{name: "wrong type", body: `{"status":3}`, field: "status"},
		{name: "extra field", body: `{"status":"selected","salary":1}`, field: "salary", errorCode: "EXTRA_FIELD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Validate([]byte(tt.body))
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Empty(t, res.Errors)
				return
			}
			assert.True(t, res.HasErrors(tt.field), "errors: %v", res.GetErrorMessages())
			if tt.errorCode != "" {
				found := false
				for _, e := range res.Errors {
					if e.Field == tt.field && e.Code == tt.errorCode {
						found = true
					}
				}
				assert.True(t, found, "errors: %+v", res.Errors)
			}
		})
	}
}

func TestSchema_ValidateMalformed(t *testing.T) {
	res := MustSchema(StatusUpdateSchema).Validate([]byte(`{"status":`))

	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "MALFORMED_JSON", res.Errors[0].Code)
}

func TestSchema_Decode(t *testing.T) {
	s := MustSchema(StatusUpdateSchema)

	var body struct {
		Status        string `json:"status"`
		InterviewDate string `json:"interview_date"`
	}
	require.NoError(t, s.Decode([]byte(`{"status":"interview_scheduled","interview_date":"2026-11-02"}`), &body))
	assert.Equal(t, "interview_scheduled", body.Status)
	assert.Equal(t, "2026-11-02", body.InterviewDate)

	err := s.Decode([]byte(`{"status":"nope"}`), &body)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
	assert.Contains(t, apperrors.Normalize(err).Details, "status")
}

func TestSchema_DecodeEmptyBody(t *testing.T) {
	var empty struct{}
	require.NoError(t, MustSchema(ApplySchema).Decode(nil, &empty))

	err := MustSchema(ApplySchema).Decode([]byte(`{"cover_note":"hi"}`), &empty)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	var body struct {
		Status string `json:"status"`
	}
	err = MustSchema(StatusUpdateSchema).Decode([]byte("  "), &body)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
}

func TestNewSchema_Invalid(t *testing.T) {
	_, err := NewSchema(`{"type": 12}`)
	assert.Error(t, err)
}
