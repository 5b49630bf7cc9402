package postgres

import (
	"context"
	"database/sql"
	"errors"

	"hiring-entitlements/internal/common/database"
	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/models"
)

const applicationColumns = `id, job_id, employee_id, employer_id, status, applied_at,
	interview_date, interview_time, interview_location, version, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	var status string
	err := row.Scan(
		&app.ID, &app.JobID, &app.EmployeeID, &app.EmployerID, &status, &app.AppliedAt,
		&app.InterviewDate, &app.InterviewTime, &app.InterviewLocation, &app.Version, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.Status = models.ApplicationStatus(status)
	return &app, nil
}

func (s *Store) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.Version == 0 {
		app.Version = 1
	}
	query := `INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.client.DB.ExecContext(ctx, query,
		app.ID, app.JobID, app.EmployeeID, app.EmployerID, string(app.Status), app.AppliedAt,
		app.InterviewDate, app.InterviewTime, app.InterviewLocation, app.Version, app.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.NewDuplicateApplicationError(app.JobID, app.EmployeeID)
		}
		return mapError("create application", err)
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(s.client.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewApplicationNotFoundError(id)
		}
		return nil, mapError("get application", err)
	}
	return app, nil
}

func (s *Store) UpdateApplicationStatus(ctx context.Context, next models.Application, change models.StatusChange) (*models.Application, error) {
	err := s.client.WithTx(ctx, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE applications
			SET status = $1, interview_date = $2, interview_time = $3, interview_location = $4,
				updated_at = $5, version = version + 1
			WHERE id = $6 AND version = $7`,
			string(next.Status), next.InterviewDate, next.InterviewTime, next.InterviewLocation,
			next.UpdatedAt, next.ID, next.Version,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, next.ID,
			).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return apperrors.NewApplicationNotFoundError(next.ID)
			}
			return apperrors.NewConcurrencyConflictError(next.ID, next.Version)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO application_status_history
				(application_id, from_status, to_status, interview_date, interview_time, interview_location, changed_by, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			change.ApplicationID, string(change.From), string(change.To),
			change.InterviewDate, change.InterviewTime, change.InterviewLocation,
			change.ChangedBy, change.ChangedAt,
		)
		return err
	})
	if err != nil {
		return nil, mapError("update application status", err)
	}

	stored := next
	stored.Version = next.Version + 1
	return &stored, nil
}

func (s *Store) ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE job_id = $1 ORDER BY applied_at, id`

	rows, err := s.client.DB.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, mapError("list applications", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, mapError("scan application", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list applications", err)
	}
	return apps, nil
}

func (s *Store) ListStatusHistory(ctx context.Context, applicationID string) ([]models.StatusChange, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT h.application_id, a.job_id, a.employee_id, a.employer_id, h.from_status, h.to_status,
			h.interview_date, h.interview_time, h.interview_location, h.changed_by, h.changed_at
		FROM application_status_history h
		JOIN applications a ON a.id = h.application_id
		WHERE h.application_id = $1
		ORDER BY h.id`, applicationID)
	if err != nil {
		return nil, mapError("list status history", err)
	}
	defer rows.Close()

	var history []models.StatusChange
	for rows.Next() {
		var c models.StatusChange
		var from, to string
		if err := rows.Scan(
			&c.ApplicationID, &c.JobID, &c.EmployeeID, &c.EmployerID, &from, &to,
			&c.InterviewDate, &c.InterviewTime, &c.InterviewLocation, &c.ChangedBy, &c.ChangedAt,
		); err != nil {
			return nil, mapError("scan status history", err)
		}
		c.From = models.ApplicationStatus(from)
		c.To = models.ApplicationStatus(to)
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list status history", err)
	}
	return history, nil
}
