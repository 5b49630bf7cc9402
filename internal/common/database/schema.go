package database

import (
	"context"
	"fmt"
)

// migrations are applied in order; every statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id          TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		title       TEXT NOT NULL,
		posted_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_employer_posted ON jobs (employer_id, posted_at)`,

	`CREATE TABLE IF NOT EXISTS employees (
		id       TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		headline TEXT NOT NULL DEFAULT '',
		email    TEXT NOT NULL DEFAULT '',
		mobile   TEXT NOT NULL DEFAULT '',
		address  TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id            TEXT PRIMARY KEY,
		account_id    TEXT NOT NULL,
		account_kind  TEXT NOT NULL CHECK (account_kind IN ('employer', 'employee')),
		plan_id       TEXT NOT NULL,
		started_at    TIMESTAMPTZ NOT NULL,
		validity_days INTEGER NOT NULL CHECK (validity_days > 0),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_account ON subscriptions (account_id, account_kind, started_at DESC)`,

	`CREATE TABLE IF NOT EXISTS applications (
		id                 TEXT PRIMARY KEY,
		job_id             TEXT NOT NULL,
		employee_id        TEXT NOT NULL,
		employer_id        TEXT NOT NULL,
		status             TEXT NOT NULL,
		applied_at         TIMESTAMPTZ NOT NULL,
		interview_date     TEXT NOT NULL DEFAULT '',
		interview_time     TEXT NOT NULL DEFAULT '',
		interview_location TEXT NOT NULL DEFAULT '',
		version            BIGINT NOT NULL DEFAULT 1,
		updated_at         TIMESTAMPTZ NOT NULL,
		CONSTRAINT uq_applications_job_employee UNIQUE (job_id, employee_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_job ON applications (job_id, applied_at)`,

	`CREATE TABLE IF NOT EXISTS application_status_history (
		id                 BIGSERIAL PRIMARY KEY,
		application_id     TEXT NOT NULL REFERENCES applications (id),
		from_status        TEXT NOT NULL,
		to_status          TEXT NOT NULL,
		interview_date     TEXT NOT NULL DEFAULT '',
		interview_time     TEXT NOT NULL DEFAULT '',
		interview_location TEXT NOT NULL DEFAULT '',
		changed_by         TEXT NOT NULL,
		changed_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_status_history_application ON application_status_history (application_id, changed_at)`,

	`CREATE TABLE IF NOT EXISTS contact_views (
		employer_id     TEXT NOT NULL,
		employee_id     TEXT NOT NULL,
		viewed_at       TIMESTAMPTZ NOT NULL,
		consumed_quota  BOOLEAN NOT NULL,
		subscription_id TEXT NOT NULL DEFAULT '',
		email           TEXT NOT NULL DEFAULT '',
		mobile          TEXT NOT NULL DEFAULT '',
		address         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (employer_id, employee_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contact_views_window ON contact_views (employer_id, subscription_id) WHERE consumed_quota`,
}

// Migrate creates the tables the repositories need.
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
