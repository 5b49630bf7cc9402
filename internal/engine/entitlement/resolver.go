// Package entitlement resolves what an account's plan allows right now and how
// much of it has been used in the current consumption window.
package entitlement

import (
	"context"
	"fmt"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/models"
	"hiring-entitlements/pkg/plancatalog"

	"golang.org/x/sync/errgroup"
)

// SubscriptionSource returns the most recently started subscription of an
// account whose validity covers asOf, or nil when none does.
type SubscriptionSource interface {
	ActiveSubscription(ctx context.Context, accountID string, kind models.AccountKind, asOf time.Time) (*models.Subscription, error)
}

// UsageCounter counts quota-consuming contact views inside one window.
type UsageCounter interface {
	CountConsumedViews(ctx context.Context, employerID, windowID string) (int, error)
}

type JobCounter interface {
	CountJobsSince(ctx context.Context, employerID string, since time.Time) (int, error)
}

// Window is the consumption period usage is counted in. Its ID is the
// subscription id, or "default:<accountID>" when the account is on the free plan.
type Window struct {
	ID            string             `json:"id"`
	AccountID     string             `json:"account_id"`
	Kind          models.AccountKind `json:"kind"`
	Plan          plancatalog.Plan   `json:"-"`
	StartedAt     time.Time          `json:"started_at"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	OnDefaultPlan bool               `json:"on_default_plan"`
}

func DefaultWindowID(accountID string) string {
	return "default:" + accountID
}

// Balance is one limited resource of a plan.
type Balance struct {
	Total    Quota `json:"total"`
	Consumed int   `json:"consumed"`
}

// Remaining is Unlimited for unlimited plans, otherwise max(total-consumed, 0).
func (b Balance) Remaining() Quota {
	return b.Total.Minus(b.Consumed)
}

// PlanEntitlement is computed on every read and never stored.
type PlanEntitlement struct {
	AccountID    string  `json:"account_id"`
	Window       Window  `json:"window"`
	ContactViews Balance `json:"contact_views"`
	Jobs         Balance `json:"jobs"`
}

type Resolver struct {
	catalog *plancatalog.Catalog
	subs    SubscriptionSource
	usage   UsageCounter
	jobs    JobCounter
	cache   *SubscriptionCache
	logger  logger.Logger
	now     func() time.Time
}

// NewResolver wires the resolver. cache may be nil.
func NewResolver(catalog *plancatalog.Catalog, subs SubscriptionSource, usage UsageCounter, jobs JobCounter, cache *SubscriptionCache, log logger.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		subs:    subs,
		usage:   usage,
		jobs:    jobs,
		cache:   cache,
		logger:  log.WithFields(map[string]interface{}{"component": "entitlement-resolver"}),
		now:     time.Now,
	}
}

// Window resolves the account's active plan period. A missing or lapsed
// subscription falls back to the catalog default for the account kind.
func (r *Resolver) Window(ctx context.Context, accountID string, kind models.AccountKind) (*Window, error) {
	sub, err := r.subscription(ctx, accountID, kind)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if sub != nil && !sub.IsExpired(now) {
		plan, ok := r.catalog.Lookup(sub.PlanID)
		if !ok {
			return nil, apperrors.NewPlanCatalogInvalidError(fmt.Sprintf("subscription %s references unknown plan %s", sub.ID, sub.PlanID))
		}
		if plan.Kind != string(kind) {
			return nil, apperrors.NewPlanCatalogInvalidError(fmt.Sprintf("plan %s is not a %s plan", plan.ID, kind))
		}
		expires := sub.ExpiresAt()
		return &Window{
			ID:        sub.ID,
			AccountID: accountID,
			Kind:      kind,
			Plan:      plan,
			StartedAt: sub.StartedAt,
			ExpiresAt: &expires,
		}, nil
	}

	if sub != nil {
		r.logger.Debug("subscription lapsed, using default plan", map[string]interface{}{
			"accountId":      accountID,
			"subscriptionId": sub.ID,
			"expiredAt":      sub.ExpiresAt(),
		})
	}

	plan, ok := r.catalog.Default(string(kind))
	if !ok {
		return nil, apperrors.NewPlanCatalogInvalidError(fmt.Sprintf("no default %s plan", kind))
	}
	return &Window{
		ID:            DefaultWindowID(accountID),
		AccountID:     accountID,
		Kind:          kind,
		Plan:          plan,
		OnDefaultPlan: true,
	}, nil
}

// Resolve returns the full entitlement snapshot for an account.
func (r *Resolver) Resolve(ctx context.Context, accountID string, kind models.AccountKind) (*PlanEntitlement, error) {
	w, err := r.Window(ctx, accountID, kind)
	if err != nil {
		return nil, err
	}

	ent := &PlanEntitlement{
		AccountID:    accountID,
		Window:       *w,
		ContactViews: Balance{Total: FromLimit(w.Plan.ContactViewsLimit)},
		Jobs:         Balance{Total: FromLimit(w.Plan.JobsLimit)},
	}
	if kind != models.AccountEmployer {
		return ent, nil
	}

	// Usage is counted for unlimited plans too so the snapshot can report it.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.usage.CountConsumedViews(gctx, accountID, w.ID)
		ent.ContactViews.Consumed = n
		return err
	})
	g.Go(func() error {
		n, err := r.jobs.CountJobsSince(gctx, accountID, w.StartedAt)
		ent.Jobs.Consumed = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ent, nil
}

// ContactViews resolves the employer's window and its contact-view balance.
func (r *Resolver) ContactViews(ctx context.Context, employerID string, usage UsageCounter) (*Window, Balance, error) {
	w, err := r.Window(ctx, employerID, models.AccountEmployer)
	if err != nil {
		return nil, Balance{}, err
	}
	b, err := r.ContactViewBalance(ctx, w, usage)
	if err != nil {
		return nil, Balance{}, err
	}
	return w, b, nil
}

// ContactViewBalance counts the views consumed inside an already resolved
// window. It reads nothing but usage, so the ledger can call it with its
// locked transaction without taking a second pool connection.
func (r *Resolver) ContactViewBalance(ctx context.Context, w *Window, usage UsageCounter) (Balance, error) {
	b := Balance{Total: FromLimit(w.Plan.ContactViewsLimit)}
	if b.Total.IsUnlimited() {
		return b, nil
	}
	if usage == nil {
		usage = r.usage
	}
	n, err := usage.CountConsumedViews(ctx, w.AccountID, w.ID)
	if err != nil {
		return Balance{}, err
	}
	b.Consumed = n
	return b, nil
}

// EmployeeOverride reports whether the employee's active plan lets any employer
// view their contact without spending quota.
func (r *Resolver) EmployeeOverride(ctx context.Context, employeeID string) (bool, error) {
	w, err := r.Window(ctx, employeeID, models.AccountEmployee)
	if err != nil {
		return false, err
	}
	return w.Plan.AllowsFreeContactView, nil
}

func (r *Resolver) subscription(ctx context.Context, accountID string, kind models.AccountKind) (*models.Subscription, error) {
	if r.cache != nil {
		if sub, ok := r.cache.Get(ctx, kind, accountID); ok {
			return sub, nil
		}
	}

	sub, err := r.subs.ActiveSubscription(ctx, accountID, kind, r.now())
	if err != nil {
		return nil, err
	}
	if sub != nil && r.cache != nil {
		r.cache.Set(ctx, sub, r.now())
	}
	return sub, nil
}
