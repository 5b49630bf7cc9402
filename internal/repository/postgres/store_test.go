package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"hiring-entitlements/internal/common/database"
	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/models"
	"hiring-entitlements/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

var applicationRowColumns = []string{
	"id", "job_id", "employee_id", "employer_id", "status", "applied_at",
	"interview_date", "interview_time", "interview_location", "version", "updated_at",
}

var contactViewRowColumns = []string{
	"employer_id", "employee_id", "viewed_at", "consumed_quota", "subscription_id", "email", "mobile", "address",
}

func createTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(database.NewPostgresFromDB(db), logger.NewTestLogger(t)), mock
}

func createTestApplication() models.Application {
	return models.Application{
		ID:         "app-1",
		JobID:      "job-1",
		EmployeeID: "employee-1",
		EmployerID: "employer-1",
		Status:     models.StatusApplied,
		AppliedAt:  testTime,
		Version:    1,
		UpdatedAt:  testTime,
	}
}

// ==========================
// Applications
// ==========================

func TestStore_CreateApplication_Success(t *testing.T) {
	store, mock := createTestStore(t)
	app := createTestApplication()
	app.Version = 0

	mock.ExpectExec(`INSERT INTO applications`).
		WithArgs("app-1", "job-1", "employee-1", "employer-1", "applied", sqlmock.AnyArg(),
			"", "", "", int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CreateApplication(context.Background(), &app)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), app.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateApplication_Duplicate(t *testing.T) {
	store, mock := createTestStore(t)
	app := createTestApplication()

	mock.ExpectExec(`INSERT INTO applications`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_applications_job_employee"})

	err := store.CreateApplication(context.Background(), &app)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateApplication))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateApplication_DatabaseError(t *testing.T) {
	store, mock := createTestStore(t)
	app := createTestApplication()

	mock.ExpectExec(`INSERT INTO applications`).
		WillReturnError(errors.New("connection reset"))

	err := store.CreateApplication(context.Background(), &app)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
	assert.True(t, apperrors.Normalize(err).Retryable)
}

func TestStore_GetApplication_Success(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).AddRow(
			"app-1", "job-1", "employee-1", "employer-1", "interview_scheduled", testTime,
			"2026-11-02", "10:00", "HQ", int64(3), testTime,
		))

	app, err := store.GetApplication(context.Background(), "app-1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusInterviewScheduled, app.Status)
	assert.Equal(t, "HQ", app.InterviewLocation)
	assert.Equal(t, int64(3), app.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetApplication_NotFound(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns))

	app, err := store.GetApplication(context.Background(), "missing")

	assert.Nil(t, app)
	assert.True(t, errors.Is(err, apperrors.ErrApplicationNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetApplication_Canceled(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications`).
		WillReturnError(context.Canceled)

	_, err := store.GetApplication(context.Background(), "app-1")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeQueryTimeout, apperrors.Normalize(err).Code)
}

func TestStore_UpdateApplicationStatus_Success(t *testing.T) {
	store, mock := createTestStore(t)
	prev := createTestApplication()
	next := prev
	next.Status = models.StatusShortlisted
	next.UpdatedAt = testTime.Add(time.Hour)
	change := models.NewStatusChange(prev, next, "employer-1")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).
		WithArgs("shortlisted", "", "", "", sqlmock.AnyArg(), "app-1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO application_status_history`).
		WithArgs("app-1", "applied", "shortlisted", "", "", "", "employer-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	stored, err := store.UpdateApplicationStatus(context.Background(), next, change)

	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, models.StatusShortlisted, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateApplicationStatus_VersionConflict(t *testing.T) {
	store, mock := createTestStore(t)
	next := createTestApplication()
	next.Status = models.StatusRejected

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.UpdateApplicationStatus(context.Background(), next, models.StatusChange{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConcurrencyConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateApplicationStatus_NotFound(t *testing.T) {
	store, mock := createTestStore(t)
	next := createTestApplication()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := store.UpdateApplicationStatus(context.Background(), next, models.StatusChange{})

	assert.True(t, errors.Is(err, apperrors.ErrApplicationNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateApplicationStatus_HistoryFailureRollsBack(t *testing.T) {
	store, mock := createTestStore(t)
	next := createTestApplication()
	next.Status = models.StatusShortlisted

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO application_status_history`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.UpdateApplicationStatus(context.Background(), next, models.StatusChange{ApplicationID: "app-1"})

	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListApplicationsByJob(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE job_id = \$1 ORDER BY applied_at, id`).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).
			AddRow("app-1", "job-1", "employee-1", "employer-1", "applied", testTime, "", "", "", int64(1), testTime).
			AddRow("app-2", "job-1", "employee-2", "employer-1", "rejected", testTime, "", "", "", int64(2), testTime))

	apps, err := store.ListApplicationsByJob(context.Background(), "job-1")

	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "app-1", apps[0].ID)
	assert.Equal(t, models.StatusRejected, apps[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListStatusHistory(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`FROM application_status_history h`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"application_id", "job_id", "employee_id", "employer_id", "from_status", "to_status",
			"interview_date", "interview_time", "interview_location", "changed_by", "changed_at",
		}).AddRow("app-1", "job-1", "employee-1", "employer-1", "applied", "shortlisted", "", "", "", "employer-1", testTime))

	history, err := store.ListStatusHistory(context.Background(), "app-1")

	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusApplied, history[0].From)
	assert.Equal(t, models.StatusShortlisted, history[0].To)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Directory & Subscriptions
// ==========================

func TestStore_GetEmployee_NotFound(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`FROM employees WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "headline", "email", "mobile", "address"}))

	_, err := store.GetEmployee(context.Background(), "ghost")

	assert.True(t, errors.Is(err, apperrors.ErrEmployeeNotFound))
}

func TestStore_GetEmployees_Batch(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`FROM employees WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "headline", "email", "mobile", "address"}).
			AddRow("employee-1", "Ada", "Engineer", "ada@example.com", "+1555", "1 Main St"))

	out, err := store.GetEmployees(context.Background(), []string{"employee-1", "employee-2"})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ada@example.com", out["employee-1"].Contact.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetEmployees_EmptySkipsQuery(t *testing.T) {
	store, mock := createTestStore(t)

	out, err := store.GetEmployees(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ActiveSubscription(t *testing.T) {
	store, mock := createTestStore(t)
	asOf := testTime.Add(time.Hour)

	mock.ExpectQuery(`FROM subscriptions\s+WHERE account_id = \$1 AND account_kind = \$2\s+AND started_at <= \$3\s+AND started_at \+ validity_days \* INTERVAL '1 day' >= \$3\s+ORDER BY started_at DESC`).
		WithArgs("employer-1", "employer", asOf).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "account_kind", "plan_id", "started_at", "validity_days"}).
			AddRow("sub-1", "employer-1", "employer", "employer-starter", testTime, 30))

	sub, err := store.ActiveSubscription(context.Background(), "employer-1", models.AccountEmployer, asOf)

	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "employer-starter", sub.PlanID)
	assert.Equal(t, models.AccountEmployer, sub.Kind)
	assert.Equal(t, testTime.AddDate(0, 0, 30), sub.ExpiresAt())
}

func TestStore_ActiveSubscription_None(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`FROM subscriptions`).
		WithArgs("employer-1", "employer", testTime).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "account_kind", "plan_id", "started_at", "validity_days"}))

	sub, err := store.ActiveSubscription(context.Background(), "employer-1", models.AccountEmployer, testTime)

	assert.NoError(t, err)
	assert.Nil(t, sub)
}

func TestStore_CountJobsSince(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs`).
		WithArgs("employer-1", testTime).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := store.CountJobsSince(context.Background(), "employer-1", testTime)

	assert.NoError(t, err)
	assert.Equal(t, 4, n)
}

// ==========================
// Contact Views
// ==========================

func TestStore_GetContactView_Absent(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`FROM contact_views WHERE employer_id = \$1 AND employee_id = \$2`).
		WithArgs("employer-1", "employee-1").
		WillReturnRows(sqlmock.NewRows(contactViewRowColumns))

	v, err := store.GetContactView(context.Background(), "employer-1", "employee-1")

	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestStore_GetContactView_Present(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`FROM contact_views WHERE employer_id = \$1 AND employee_id = \$2`).
		WithArgs("employer-1", "employee-1").
		WillReturnRows(sqlmock.NewRows(contactViewRowColumns).
			AddRow("employer-1", "employee-1", testTime, true, "sub-1", "a@example.com", "+1555", "1 Main St"))

	v, err := store.GetContactView(context.Background(), "employer-1", "employee-1")

	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.ConsumedQuota)
	assert.Equal(t, "a@example.com", v.Contact.Email)
}

func TestStore_ListContactViews(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`FROM contact_views WHERE employer_id = \$1 AND employee_id = ANY\(\$2\)`).
		WithArgs("employer-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(contactViewRowColumns).
			AddRow("employer-1", "employee-2", testTime, false, "", "b@example.com", "", ""))

	out, err := store.ListContactViews(context.Background(), "employer-1", []string{"employee-1", "employee-2"})

	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Contains(t, out, "employee-2")
}

func TestStore_WithEmployerLock_InsertsUnderAdvisoryLock(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("employer-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contact_views`).
		WithArgs("employer-1", "sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO contact_views`).
		WithArgs("employer-1", "employee-1", sqlmock.AnyArg(), true, "sub-1", "a@example.com", "+1555", "1 Main St").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var inserted bool
	err := store.WithEmployerLock(context.Background(), "employer-1", func(ctx context.Context, tx repository.ContactViewTx) error {
		n, err := tx.CountConsumedViews(ctx, "employer-1", "sub-1")
		if err != nil {
			return err
		}
		assert.Equal(t, 2, n)
		inserted, err = tx.InsertContactView(ctx, models.ContactView{
			EmployerID:     "employer-1",
			EmployeeID:     "employee-1",
			ViewedAt:       testTime,
			ConsumedQuota:  true,
			SubscriptionID: "sub-1",
			Contact:        models.ContactDetails{Email: "a@example.com", Mobile: "+1555", Address: "1 Main St"},
		})
		return err
	})

	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithEmployerLock_ConflictingInsert(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("employer-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO contact_views`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var inserted bool
	err := store.WithEmployerLock(context.Background(), "employer-1", func(ctx context.Context, tx repository.ContactViewTx) error {
		var err error
		inserted, err = tx.InsertContactView(ctx, models.ContactView{EmployerID: "employer-1", EmployeeID: "employee-1", ViewedAt: testTime})
		return err
	})

	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithEmployerLock_RollsBackOnError(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("employer-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithEmployerLock(context.Background(), "employer-1", func(ctx context.Context, tx repository.ContactViewTx) error {
		return apperrors.NewQuotaExhaustedError("employer-1", 5)
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrQuotaExhausted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithEmployerLock_LockFailure(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	called := false
	err := store.WithEmployerLock(context.Background(), "employer-1", func(ctx context.Context, tx repository.ContactViewTx) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
	assert.NoError(t, mock.ExpectationsWereMet())
}
