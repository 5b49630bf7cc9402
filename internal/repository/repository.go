// Package repository is the persistence boundary of the engine. Implementations
// return *errors.StandardError values so callers can branch on codes.
package repository

import (
	"context"
	"time"

	"hiring-entitlements/internal/models"
)

type ApplicationRepository interface {
	// CreateApplication fails with DUPLICATE_APPLICATION when the (job, employee) pair exists.
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	// UpdateApplicationStatus persists next if the stored version still equals
	// next.Version and appends change to the status history in the same commit.
	// It returns the stored row with its bumped version.
	UpdateApplicationStatus(ctx context.Context, next models.Application, change models.StatusChange) (*models.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error)
	ListStatusHistory(ctx context.Context, applicationID string) ([]models.StatusChange, error)
}

type DirectoryRepository interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
	// GetEmployees returns the employees found, keyed by id. Unknown ids are skipped.
	GetEmployees(ctx context.Context, ids []string) (map[string]models.Employee, error)
	CountJobsSince(ctx context.Context, employerID string, since time.Time) (int, error)
}

type SubscriptionRepository interface {
	// ActiveSubscription returns the most recently started subscription whose
	// validity covers asOf, or nil, nil when no such subscription exists. An
	// older long plan still running wins over a newer one that already lapsed.
	ActiveSubscription(ctx context.Context, accountID string, kind models.AccountKind, asOf time.Time) (*models.Subscription, error)
}

type ContactViewReader interface {
	// GetContactView returns nil, nil when the pair was never disclosed.
	GetContactView(ctx context.Context, employerID, employeeID string) (*models.ContactView, error)
	CountConsumedViews(ctx context.Context, employerID, windowID string) (int, error)
}

// ContactViewTx is the view of the ledger inside an employer-locked transaction.
type ContactViewTx interface {
	ContactViewReader
	// InsertContactView reports false when a row for the pair already exists.
	InsertContactView(ctx context.Context, view models.ContactView) (bool, error)
}

type ContactViewRepository interface {
	ContactViewReader
	ListContactViews(ctx context.Context, employerID string, employeeIDs []string) (map[string]models.ContactView, error)
	// WithEmployerLock runs fn in a transaction serialized against every other
	// WithEmployerLock call for the same employer. fn's error rolls it back.
	WithEmployerLock(ctx context.Context, employerID string, fn func(ctx context.Context, tx ContactViewTx) error) error
}

// Store bundles every repository the service needs.
type Store interface {
	ApplicationRepository
	DirectoryRepository
	SubscriptionRepository
	ContactViewRepository
	Ping(ctx context.Context) error
}
