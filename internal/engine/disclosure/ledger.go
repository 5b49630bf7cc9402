// Package disclosure implements the contact disclosure ledger: a reveal is a
// one-time event per (employer, employee) pair and debits quota at most once.
package disclosure

import (
	"context"
	"errors"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/common/metrics"
	"hiring-entitlements/internal/engine/entitlement"
	"hiring-entitlements/internal/models"
	"hiring-entitlements/internal/repository"
)

const (
	OutcomeAlreadyViewed  = "already_viewed"
	OutcomeFreeView       = "free_view"
	OutcomeDebited        = "debited"
	OutcomeQuotaExhausted = "quota_exhausted"
	OutcomeError          = "error"
)

var errContactViewVanished = errors.New("contact view conflicted but could not be read back")

// Entitlements is the part of the resolver the ledger depends on.
type Entitlements interface {
	EmployeeOverride(ctx context.Context, employeeID string) (bool, error)
	Window(ctx context.Context, accountID string, kind models.AccountKind) (*entitlement.Window, error)
	ContactViewBalance(ctx context.Context, w *entitlement.Window, usage entitlement.UsageCounter) (entitlement.Balance, error)
}

type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
}

type Config struct {
	// CommitTimeout bounds the locked transaction. It is measured from the
	// start of the transaction, independent of the caller's deadline.
	CommitTimeout time.Duration
}

// Result describes one reveal call.
type Result struct {
	Contact       models.ContactDetails
	AlreadyViewed bool
	ConsumedQuota bool
	FreeView      bool
	ViewedAt      time.Time
}

type Ledger struct {
	views        repository.ContactViewRepository
	directory    EmployeeDirectory
	entitlements Entitlements
	config       Config
	logger       logger.Logger
	now          func() time.Time
}

func NewLedger(views repository.ContactViewRepository, directory EmployeeDirectory, ents Entitlements, cfg Config, log logger.Logger) *Ledger {
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 5 * time.Second
	}
	return &Ledger{
		views:        views,
		directory:    directory,
		entitlements: ents,
		config:       cfg,
		logger:       log.WithFields(map[string]interface{}{"component": "disclosure-ledger"}),
		now:          time.Now,
	}
}

// Reveal discloses the employee's contact details to the employer.
//
// The presence check, the quota check and the insert run in one transaction
// holding the employer's lock, and the insert is additionally guarded by the
// (employer_id, employee_id) unique key. Concurrent reveals of one pair
// therefore produce exactly one row and at most one debit; losers report
// AlreadyViewed. The transaction ignores caller cancellation, so a disconnect
// never rolls back a committed disclosure.
//
// The employer's window is resolved before the lock is taken; inside the
// transaction every read goes through tx, so a reveal holds one connection.
func (l *Ledger) Reveal(ctx context.Context, employerID, employeeID string) (*Result, error) {
	log := l.logger.WithFields(map[string]interface{}{
		"employerId": employerID,
		"employeeId": employeeID,
	})

	existing, err := l.views.GetContactView(ctx, employerID, employeeID)
	if err != nil {
		metrics.ContactReveals.WithLabelValues(OutcomeError).Inc()
		return nil, err
	}
	if existing != nil {
		metrics.ContactReveals.WithLabelValues(OutcomeAlreadyViewed).Inc()
		return alreadyViewed(existing), nil
	}

	employee, err := l.directory.GetEmployee(ctx, employeeID)
	if err != nil {
		metrics.ContactReveals.WithLabelValues(OutcomeError).Inc()
		return nil, err
	}
	free, err := l.entitlements.EmployeeOverride(ctx, employeeID)
	if err != nil {
		metrics.ContactReveals.WithLabelValues(OutcomeError).Inc()
		return nil, err
	}

	var window *entitlement.Window
	if !free {
		window, err = l.entitlements.Window(ctx, employerID, models.AccountEmployer)
		if err != nil {
			metrics.ContactReveals.WithLabelValues(OutcomeError).Inc()
			return nil, err
		}
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.config.CommitTimeout)
	defer cancel()

	var result *Result
	err = l.views.WithEmployerLock(txCtx, employerID, func(ctx context.Context, tx repository.ContactViewTx) error {
		v, err := tx.GetContactView(ctx, employerID, employeeID)
		if err != nil {
			return err
		}
		if v != nil {
			result = alreadyViewed(v)
			return nil
		}

		view := models.ContactView{
			EmployerID: employerID,
			EmployeeID: employeeID,
			ViewedAt:   l.now().UTC(),
			Contact:    employee.Contact,
		}
		if !free {
			balance, err := l.entitlements.ContactViewBalance(ctx, window, tx)
			if err != nil {
				return err
			}
			if balance.Remaining().Exhausted() {
				return apperrors.NewQuotaExhaustedError(employerID, balance.Total.Int())
			}
			view.ConsumedQuota = true
			view.SubscriptionID = window.ID
		}

		inserted, err := tx.InsertContactView(ctx, view)
		if err != nil {
			return err
		}
		if !inserted {
			// Another writer without the lock won the unique key.
			v, err := tx.GetContactView(ctx, employerID, employeeID)
			if err != nil {
				return err
			}
			if v == nil {
				return apperrors.NewInternalError(errContactViewVanished)
			}
			result = alreadyViewed(v)
			return nil
		}

		result = &Result{
			Contact:       view.Contact,
			ConsumedQuota: view.ConsumedQuota,
			FreeView:      free,
			ViewedAt:      view.ViewedAt,
		}
		return nil
	})
	if err != nil {
		if apperrors.Normalize(err).Code == apperrors.ErrCodeQuotaExhausted {
			metrics.ContactReveals.WithLabelValues(OutcomeQuotaExhausted).Inc()
			log.Info("contact reveal refused, quota exhausted", nil)
		} else {
			metrics.ContactReveals.WithLabelValues(OutcomeError).Inc()
			log.Error("contact reveal failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, err
	}

	switch {
	case result.AlreadyViewed:
		metrics.ContactReveals.WithLabelValues(OutcomeAlreadyViewed).Inc()
	case result.FreeView:
		metrics.ContactReveals.WithLabelValues(OutcomeFreeView).Inc()
		log.Info("contact revealed via employee override", nil)
	default:
		metrics.ContactReveals.WithLabelValues(OutcomeDebited).Inc()
		metrics.QuotaDebits.WithLabelValues(window.Plan.ID).Inc()
		log.Info("contact revealed, quota debited", map[string]interface{}{"planId": window.Plan.ID})
	}
	return result, nil
}

func alreadyViewed(v *models.ContactView) *Result {
	return &Result{
		Contact:       v.Contact,
		AlreadyViewed: true,
		ViewedAt:      v.ViewedAt,
	}
}
