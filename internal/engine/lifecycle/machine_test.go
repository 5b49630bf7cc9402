package lifecycle

import (
	"errors"
	"testing"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func createTestApplication(status models.ApplicationStatus) models.Application {
	applied := testNow.Add(-48 * time.Hour)
	return models.Application{
		ID:         "app-001",
		JobID:      "job-001",
		EmployeeID: "emp-001",
		EmployerID: "employer-001",
		Status:     status,
		AppliedAt:  applied,
		Version:    3,
		UpdatedAt:  applied,
	}
}

func fullInterview() Payload {
	return Payload{
		InterviewDate:     "2026-10-25",
		InterviewTime:     "14:30",
		InterviewLocation: "Head office, room 4",
	}
}

func payloadFor(target models.ApplicationStatus) Payload {
	if target == models.StatusInterviewScheduled {
		return fullInterview()
	}
	return Payload{}
}

// ==========================
// Edge Table
// ==========================

func TestTransition_EdgeTable(t *testing.T) {
	allowed := map[models.ApplicationStatus]map[models.ApplicationStatus]bool{
		models.StatusApplied: {
			models.StatusShortlisted:        true,
			models.StatusInterviewScheduled: true,
			models.StatusRejected:           true,
		},
		models.StatusShortlisted: {
			models.StatusInterviewScheduled: true,
			models.StatusSelected:           true,
			models.StatusRejected:           true,
		},
		models.StatusInterviewScheduled: {
			models.StatusSelected: true,
			models.StatusRejected: true,
		},
	}

	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				app := createTestApplication(from)
				next, err := Transition(app, to, payloadFor(to), testNow)

				switch {
				case from == to:
					assert.True(t, errors.Is(err, apperrors.ErrAlreadyInState))
					assert.Equal(t, app, next)
				case allowed[from][to]:
					require.NoError(t, err)
					assert.Equal(t, to, next.Status)
					assert.Equal(t, testNow, next.UpdatedAt)
				default:
					assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
					assert.Equal(t, app, next)
				}
				assert.Equal(t, allowed[from][to], CanTransition(from, to))
			})
		}
	}
}

func TestTransition_NeverReturnsToApplied(t *testing.T) {
	for _, from := range models.AllStatuses {
		if from == models.StatusApplied {
			continue
		}
		_, err := Transition(createTestApplication(from), models.StatusApplied, Payload{}, testNow)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition), "from %s", from)
	}
}

func TestTransition_UnknownTarget(t *testing.T) {
	_, err := Transition(createTestApplication(models.StatusApplied), "hired", Payload{}, testNow)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeInvalidTransition, stdErr.Code)
	assert.Equal(t, "applied", stdErr.Metadata["from"])
	assert.Equal(t, "hired", stdErr.Metadata["to"])
}

// ==========================
// Interview Payload
// ==========================

func TestTransition_InterviewScheduled_EmptyPayload(t *testing.T) {
	app := createTestApplication(models.StatusApplied)

	next, err := Transition(app, models.StatusInterviewScheduled, Payload{}, testNow)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMissingInterviewDetails))
	assert.Equal(t, models.StatusApplied, next.Status)
	assert.Empty(t, next.InterviewDate)
	assert.Equal(t, app, next)
}

func TestTransition_InterviewScheduled_PartialPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		missing []string
	}{
		{
			name:    "missing location",
			payload: Payload{InterviewDate: "2026-10-25", InterviewTime: "14:30"},
			missing: []string{"interview_location"},
		},
		{
			name:    "whitespace time",
			payload: Payload{InterviewDate: "2026-10-25", InterviewTime: "   ", InterviewLocation: "Remote"},
			missing: []string{"interview_time"},
		},
		{
			name:    "only location",
			payload: Payload{InterviewLocation: "Remote"},
			missing: []string{"interview_date", "interview_time"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transition(createTestApplication(models.StatusShortlisted), models.StatusInterviewScheduled, tt.payload, testNow)

			var stdErr *apperrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, apperrors.ErrCodeMissingInterviewDetails, stdErr.Code)
			assert.Equal(t, tt.missing, stdErr.Metadata["missing"])
		})
	}
}

func TestTransition_InterviewScheduled_SetsDetails(t *testing.T) {
	p := Payload{InterviewDate: " 2026-10-25 ", InterviewTime: "14:30", InterviewLocation: "Head office"}

	next, err := Transition(createTestApplication(models.StatusApplied), models.StatusInterviewScheduled, p, testNow)

	require.NoError(t, err)
	assert.Equal(t, "2026-10-25", next.InterviewDate)
	assert.Equal(t, "14:30", next.InterviewTime)
	assert.Equal(t, "Head office", next.InterviewLocation)
}

func TestTransition_KeepsInterviewDetailsAfterwards(t *testing.T) {
	app := createTestApplication(models.StatusApplied)
	scheduled, err := Transition(app, models.StatusInterviewScheduled, fullInterview(), testNow)
	require.NoError(t, err)

	selected, err := Transition(scheduled, models.StatusSelected, Payload{}, testNow.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, models.StatusSelected, selected.Status)
	assert.Equal(t, "2026-10-25", selected.InterviewDate)
	assert.Equal(t, app.AppliedAt, selected.AppliedAt)
	assert.Equal(t, app.Version, selected.Version)
}

func TestTransition_IgnoresInterviewFieldsOnOtherTargets(t *testing.T) {
	next, err := Transition(createTestApplication(models.StatusApplied), models.StatusShortlisted, fullInterview(), testNow)

	require.NoError(t, err)
	assert.Empty(t, next.InterviewDate)
	assert.Empty(t, next.InterviewLocation)
}

// ==========================
// Policy Queries
// ==========================

func TestAllowedTargets(t *testing.T) {
	assert.Equal(t,
		[]models.ApplicationStatus{models.StatusShortlisted, models.StatusInterviewScheduled, models.StatusRejected},
		AllowedTargets(models.StatusApplied))
	assert.Empty(t, AllowedTargets(models.StatusSelected))

	// Callers cannot mutate the table through the returned slice.
	targets := AllowedTargets(models.StatusInterviewScheduled)
	targets[0] = models.StatusApplied
	assert.Equal(t, models.StatusSelected, AllowedTargets(models.StatusInterviewScheduled)[0])
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.StatusSelected))
	assert.True(t, IsTerminal(models.StatusRejected))
	assert.False(t, IsTerminal(models.StatusApplied))
	assert.False(t, IsTerminal(models.StatusInterviewScheduled))
	assert.False(t, IsTerminal("unknown"))
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus(" shortlisted ")
	assert.True(t, ok)
	assert.Equal(t, models.StatusShortlisted, st)

	_, ok = ParseStatus("Shortlisted")
	assert.False(t, ok)
}
