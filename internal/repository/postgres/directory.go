package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/models"

	"github.com/lib/pq"
)

func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT id, employer_id, title, posted_at FROM jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.EmployerID, &job.Title, &job.PostedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewJobNotFoundError(id)
		}
		return nil, mapError("get job", err)
	}
	return &job, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	var e models.Employee
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT id, name, headline, email, mobile, address FROM employees WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Headline, &e.Contact.Email, &e.Contact.Mobile, &e.Contact.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewEmployeeNotFoundError(id)
		}
		return nil, mapError("get employee", err)
	}
	return &e, nil
}

func (s *Store) GetEmployees(ctx context.Context, ids []string) (map[string]models.Employee, error) {
	out := make(map[string]models.Employee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT id, name, headline, email, mobile, address FROM employees WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, mapError("get employees", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Headline, &e.Contact.Email, &e.Contact.Mobile, &e.Contact.Address); err != nil {
			return nil, mapError("scan employee", err)
		}
		out[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("get employees", err)
	}
	return out, nil
}

func (s *Store) CountJobsSince(ctx context.Context, employerID string, since time.Time) (int, error) {
	var n int
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE employer_id = $1 AND posted_at >= $2`, employerID, since,
	).Scan(&n)
	if err != nil {
		return 0, mapError("count jobs", err)
	}
	return n, nil
}

func (s *Store) ActiveSubscription(ctx context.Context, accountID string, kind models.AccountKind, asOf time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	var k string
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT id, account_id, account_kind, plan_id, started_at, validity_days
		FROM subscriptions
		WHERE account_id = $1 AND account_kind = $2
			AND started_at <= $3
			AND started_at + validity_days * INTERVAL '1 day' >= $3
		ORDER BY started_at DESC
		LIMIT 1`, accountID, string(kind), asOf,
	).Scan(&sub.ID, &sub.AccountID, &k, &sub.PlanID, &sub.StartedAt, &sub.ValidityDays)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("active subscription", err)
	}
	sub.Kind = models.AccountKind(k)
	return &sub, nil
}
