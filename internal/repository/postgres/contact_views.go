package postgres

import (
	"context"
	"database/sql"
	"errors"

	"hiring-entitlements/internal/common/database"
	"hiring-entitlements/internal/models"
	"hiring-entitlements/internal/repository"

	"github.com/lib/pq"
)

const contactViewColumns = `employer_id, employee_id, viewed_at, consumed_quota, subscription_id, email, mobile, address`

// contactViewQueries runs against the pool or inside a transaction.
type contactViewQueries struct {
	db database.DBTX
}

func scanContactView(row rowScanner) (*models.ContactView, error) {
	var v models.ContactView
	err := row.Scan(&v.EmployerID, &v.EmployeeID, &v.ViewedAt, &v.ConsumedQuota, &v.SubscriptionID,
		&v.Contact.Email, &v.Contact.Mobile, &v.Contact.Address)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (q contactViewQueries) GetContactView(ctx context.Context, employerID, employeeID string) (*models.ContactView, error) {
	v, err := scanContactView(q.db.QueryRowContext(ctx,
		`SELECT `+contactViewColumns+` FROM contact_views WHERE employer_id = $1 AND employee_id = $2`,
		employerID, employeeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get contact view", err)
	}
	return v, nil
}

func (q contactViewQueries) CountConsumedViews(ctx context.Context, employerID, windowID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contact_views WHERE employer_id = $1 AND subscription_id = $2 AND consumed_quota`,
		employerID, windowID,
	).Scan(&n)
	if err != nil {
		return 0, mapError("count consumed views", err)
	}
	return n, nil
}

func (q contactViewQueries) InsertContactView(ctx context.Context, v models.ContactView) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO contact_views (`+contactViewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (employer_id, employee_id) DO NOTHING`,
		v.EmployerID, v.EmployeeID, v.ViewedAt, v.ConsumedQuota, v.SubscriptionID,
		v.Contact.Email, v.Contact.Mobile, v.Contact.Address,
	)
	if err != nil {
		return false, mapError("insert contact view", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError("insert contact view", err)
	}
	return n == 1, nil
}

func (s *Store) GetContactView(ctx context.Context, employerID, employeeID string) (*models.ContactView, error) {
	return contactViewQueries{db: s.client.DB}.GetContactView(ctx, employerID, employeeID)
}

func (s *Store) CountConsumedViews(ctx context.Context, employerID, windowID string) (int, error) {
	return contactViewQueries{db: s.client.DB}.CountConsumedViews(ctx, employerID, windowID)
}

func (s *Store) ListContactViews(ctx context.Context, employerID string, employeeIDs []string) (map[string]models.ContactView, error) {
	out := make(map[string]models.ContactView, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return out, nil
	}

	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT `+contactViewColumns+` FROM contact_views WHERE employer_id = $1 AND employee_id = ANY($2)`,
		employerID, pq.Array(employeeIDs))
	if err != nil {
		return nil, mapError("list contact views", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanContactView(rows)
		if err != nil {
			return nil, mapError("scan contact view", err)
		}
		out[v.EmployeeID] = *v
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list contact views", err)
	}
	return out, nil
}

// WithEmployerLock holds pg_advisory_xact_lock keyed by the employer for the
// whole transaction, so quota reads and debits of one employer never interleave
// across processes. The lock is released by commit or rollback.
func (s *Store) WithEmployerLock(ctx context.Context, employerID string, fn func(ctx context.Context, tx repository.ContactViewTx) error) error {
	err := s.client.WithTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, employerID); err != nil {
			return err
		}
		return fn(ctx, contactViewQueries{db: tx})
	})
	if err != nil {
		return mapError("employer lock transaction", err)
	}
	return nil
}
