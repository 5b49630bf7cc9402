// Package gateway composes the resolver, the disclosure ledger and the status
// policy into the operations the HTTP layer calls.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/common/metrics"
	"hiring-entitlements/internal/common/observability"
	"hiring-entitlements/internal/engine/disclosure"
	"hiring-entitlements/internal/engine/entitlement"
	"hiring-entitlements/internal/engine/lifecycle"
	"hiring-entitlements/internal/models"
	"hiring-entitlements/internal/notify"
	"hiring-entitlements/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Entitlements interface {
	Resolve(ctx context.Context, accountID string, kind models.AccountKind) (*entitlement.PlanEntitlement, error)
	ContactViews(ctx context.Context, employerID string, usage entitlement.UsageCounter) (*entitlement.Window, entitlement.Balance, error)
	EmployeeOverride(ctx context.Context, employeeID string) (bool, error)
}

type Ledger interface {
	Reveal(ctx context.Context, employerID, employeeID string) (*disclosure.Result, error)
}

// Publisher receives committed events. Publish must not block.
type Publisher interface {
	Publish(ctx context.Context, e notify.Event)
}

type Config struct {
	// OverrideConcurrency caps parallel override lookups when listing applications.
	OverrideConcurrency int
}

type Gateway struct {
	store        repository.Store
	entitlements Entitlements
	ledger       Ledger
	hooks        Publisher
	obs          *observability.Observability
	config       Config
	logger       logger.Logger
	now          func() time.Time
	newID        func() string
}

// New wires the gateway. hooks and obs may be nil.
func New(store repository.Store, ents Entitlements, ledger Ledger, hooks Publisher, obs *observability.Observability, cfg Config, log logger.Logger) *Gateway {
	if cfg.OverrideConcurrency <= 0 {
		cfg.OverrideConcurrency = 8
	}
	return &Gateway{
		store:        store,
		entitlements: ents,
		ledger:       ledger,
		hooks:        hooks,
		obs:          obs,
		config:       cfg,
		logger:       log.WithFields(map[string]interface{}{"component": "entitlement-gateway"}),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// RevealOutcome is the result of a reveal as shown to the employer.
type RevealOutcome struct {
	Contact       models.ContactDetails `json:"contact_details"`
	AlreadyViewed bool                  `json:"already_viewed"`
	ConsumedQuota bool                  `json:"consumed_quota"`
	// ViewsRemaining is nil when the balance could not be read after the reveal.
	ViewsRemaining *entitlement.Quota `json:"views_remaining"`
	Message        string             `json:"message"`
}

// RevealContact reveals the contact of the employee behind applicationID. The
// application must belong to employerID; otherwise it is reported as not found.
func (g *Gateway) RevealContact(ctx context.Context, employerID, applicationID string) (*RevealOutcome, error) {
	app, err := g.ownedApplication(ctx, employerID, applicationID)
	if err != nil {
		return nil, err
	}
	return g.reveal(ctx, employerID, app.EmployeeID, app.ID)
}

func (g *Gateway) reveal(ctx context.Context, employerID, employeeID, applicationID string) (out *RevealOutcome, err error) {
	ctx, span := g.obs.StartSpan(ctx, "gateway.reveal_contact",
		attribute.String("employer.id", employerID),
		attribute.String("employee.id", employeeID),
	)
	start := time.Now()
	defer func() { g.finish(ctx, span, "reveal_contact", start, err) }()

	res, err := g.ledger.Reveal(ctx, employerID, employeeID)
	if err != nil {
		return nil, err
	}

	out = &RevealOutcome{
		Contact:       res.Contact,
		AlreadyViewed: res.AlreadyViewed,
		ConsumedQuota: res.ConsumedQuota,
	}
	// The disclosure is committed; a failed balance read only loses the counter.
	if _, balance, berr := g.entitlements.ContactViews(ctx, employerID, nil); berr != nil {
		g.logger.Warn("balance unavailable after reveal", map[string]interface{}{
			"employerId": employerID,
			"error":      berr.Error(),
		})
	} else {
		remaining := balance.Remaining()
		out.ViewsRemaining = &remaining
	}
	out.Message = revealMessage(res, out.ViewsRemaining)

	if !res.AlreadyViewed {
		g.publish(ctx, notify.ContactRevealed(notify.RevealRecord{
			EmployerID:    employerID,
			EmployeeID:    employeeID,
			ApplicationID: applicationID,
			ConsumedQuota: res.ConsumedQuota,
			FreeView:      res.FreeView,
			ViewedAt:      res.ViewedAt,
		}))
	}
	return out, nil
}

func revealMessage(res *disclosure.Result, remaining *entitlement.Quota) string {
	switch {
	case res.AlreadyViewed:
		return "Contact details already unlocked. No contact view was used."
	case res.FreeView:
		return "Contact details unlocked free of charge by the candidate's plan."
	case remaining == nil:
		return "Contact details unlocked."
	case remaining.IsUnlimited():
		return "Contact details unlocked. You have unlimited contact views."
	case remaining.Int() == 1:
		return "Contact details unlocked. 1 contact view remaining."
	default:
		return fmt.Sprintf("Contact details unlocked. %d contact views remaining.", remaining.Int())
	}
}

// TransitionStatus moves an application owned by employerID to target. A
// version conflict re-reads the application and re-validates once before the
// conflict is returned.
func (g *Gateway) TransitionStatus(ctx context.Context, employerID, applicationID string, target models.ApplicationStatus, p lifecycle.Payload) (stored *models.Application, err error) {
	ctx, span := g.obs.StartSpan(ctx, "gateway.transition_status",
		attribute.String("application.id", applicationID),
		attribute.String("status.target", string(target)),
	)
	start := time.Now()
	defer func() { g.finish(ctx, span, "transition_status", start, err) }()

	for attempt := 0; ; attempt++ {
		var app *models.Application
		app, err = g.ownedApplication(ctx, employerID, applicationID)
		if err != nil {
			return nil, err
		}

		next, terr := lifecycle.Transition(*app, target, p, g.now())
		if terr != nil {
			err = terr
			metrics.StatusTransitionErrors.WithLabelValues(string(apperrors.Normalize(err).Code)).Inc()
			return nil, err
		}

		change := models.NewStatusChange(*app, next, employerID)
		stored, err = g.store.UpdateApplicationStatus(ctx, next, change)
		if errors.Is(err, apperrors.ErrConcurrencyConflict) && attempt == 0 {
			metrics.ConcurrencyRetries.Inc()
			g.logger.Debug("version conflict, retrying transition", map[string]interface{}{
				"applicationId": applicationID,
				"version":       app.Version,
			})
			continue
		}
		if err != nil {
			metrics.StatusTransitionErrors.WithLabelValues(string(apperrors.Normalize(err).Code)).Inc()
			return nil, err
		}

		metrics.StatusTransitions.WithLabelValues(string(app.Status), string(stored.Status)).Inc()
		g.logger.Info("application status changed", map[string]interface{}{
			"applicationId": applicationID,
			"from":          app.Status,
			"to":            stored.Status,
			"version":       stored.Version,
		})
		g.publish(ctx, notify.StatusChanged(change))
		return stored, nil
	}
}

// StatusHistory lists the recorded transitions of an application.
func (g *Gateway) StatusHistory(ctx context.Context, employerID, applicationID string) ([]models.StatusChange, error) {
	if _, err := g.ownedApplication(ctx, employerID, applicationID); err != nil {
		return nil, err
	}
	return g.store.ListStatusHistory(ctx, applicationID)
}

// PlanSnapshot is the plan view of an account. Quotas render -1 for unlimited.
type PlanSnapshot struct {
	PlanID                string     `json:"plan_id"`
	PlanName              string     `json:"plan_name"`
	OnDefaultPlan         bool       `json:"on_default_plan"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	JobsTotal             int        `json:"jobs_total"`
	JobsPosted            int        `json:"jobs_posted"`
	JobsRemaining         int        `json:"jobs_remaining"`
	ContactViewsTotal     int        `json:"contact_views_total"`
	ContactViewsUsed      int        `json:"contact_views_used"`
	ContactViewsRemaining int        `json:"contact_views_remaining"`
	AllowsFreeContactView bool       `json:"allows_free_contact_view"`
}

func (g *Gateway) CurrentPlan(ctx context.Context, accountID string, kind models.AccountKind) (*PlanSnapshot, error) {
	ent, err := g.entitlements.Resolve(ctx, accountID, kind)
	if err != nil {
		return nil, err
	}
	w := ent.Window
	snap := &PlanSnapshot{
		PlanID:                w.Plan.ID,
		PlanName:              w.Plan.Name,
		OnDefaultPlan:         w.OnDefaultPlan,
		ExpiresAt:             w.ExpiresAt,
		JobsTotal:             ent.Jobs.Total.Int(),
		JobsPosted:            ent.Jobs.Consumed,
		JobsRemaining:         ent.Jobs.Remaining().Int(),
		ContactViewsTotal:     ent.ContactViews.Total.Int(),
		ContactViewsUsed:      ent.ContactViews.Consumed,
		ContactViewsRemaining: ent.ContactViews.Remaining().Int(),
		AllowsFreeContactView: w.Plan.AllowsFreeContactView,
	}
	if !w.StartedAt.IsZero() {
		started := w.StartedAt
		snap.StartedAt = &started
	}
	return snap, nil
}

// ApplicationListing is one row of an employer's applicant list. Contact is
// set only when the employer already unlocked it.
type ApplicationListing struct {
	models.Application
	Employee                      models.EmployeeSummary `json:"employee"`
	ContactDetailsViewed          bool                   `json:"contact_details_viewed"`
	EmployeeAllowsFreeContactView bool                   `json:"employee_allows_free_contact_view"`
	Contact                       *models.ContactDetails `json:"contact_details,omitempty"`
}

func (g *Gateway) ListJobApplications(ctx context.Context, employerID, jobID string) ([]ApplicationListing, error) {
	job, err := g.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != employerID {
		return nil, apperrors.NewJobNotFoundError(jobID)
	}

	apps, err := g.store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return []ApplicationListing{}, nil
	}

	seen := make(map[string]bool, len(apps))
	var employeeIDs []string
	for _, a := range apps {
		if !seen[a.EmployeeID] {
			seen[a.EmployeeID] = true
			employeeIDs = append(employeeIDs, a.EmployeeID)
		}
	}

	var (
		employees map[string]models.Employee
		views     map[string]models.ContactView
		overrides = make(map[string]bool, len(employeeIDs))
		mu        sync.Mutex
	)
	g1, gctx := errgroup.WithContext(ctx)
	g1.Go(func() error {
		var err error
		employees, err = g.store.GetEmployees(gctx, employeeIDs)
		return err
	})
	g1.Go(func() error {
		var err error
		views, err = g.store.ListContactViews(gctx, employerID, employeeIDs)
		return err
	})
	g1.Go(func() error {
		eg, ectx := errgroup.WithContext(gctx)
		eg.SetLimit(g.config.OverrideConcurrency)
		for _, id := range employeeIDs {
			id := id
			eg.Go(func() error {
				free, err := g.entitlements.EmployeeOverride(ectx, id)
				if err != nil {
					return err
				}
				mu.Lock()
				overrides[id] = free
				mu.Unlock()
				return nil
			})
		}
		return eg.Wait()
	})
	if err := g1.Wait(); err != nil {
		return nil, err
	}

	out := make([]ApplicationListing, 0, len(apps))
	for _, a := range apps {
		row := ApplicationListing{
			Application:                   a,
			Employee:                      models.EmployeeSummary{ID: a.EmployeeID},
			EmployeeAllowsFreeContactView: overrides[a.EmployeeID],
		}
		if e, ok := employees[a.EmployeeID]; ok {
			row.Employee = e.Summary()
		}
		if v, ok := views[a.EmployeeID]; ok {
			contact := v.Contact
			row.ContactDetailsViewed = true
			row.Contact = &contact
		}
		out = append(out, row)
	}
	return out, nil
}

// Apply records employeeID's application to jobID.
func (g *Gateway) Apply(ctx context.Context, employeeID, jobID string) (*models.Application, error) {
	job, err := g.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if _, err := g.store.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	now := g.now().UTC()
	app := &models.Application{
		ID:         g.newID(),
		JobID:      job.ID,
		EmployeeID: employeeID,
		EmployerID: job.EmployerID,
		Status:     models.StatusApplied,
		AppliedAt:  now,
		Version:    1,
		UpdatedAt:  now,
	}
	if err := g.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	g.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"jobId":         jobID,
		"employeeId":    employeeID,
	})
	g.publish(ctx, notify.ApplicationSubmitted(*app))
	return app, nil
}

func (g *Gateway) ownedApplication(ctx context.Context, employerID, applicationID string) (*models.Application, error) {
	app, err := g.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.EmployerID != employerID {
		return nil, apperrors.NewApplicationNotFoundError(applicationID)
	}
	return app, nil
}

func (g *Gateway) publish(ctx context.Context, e notify.Event) {
	if g.hooks != nil {
		g.hooks.Publish(ctx, e)
	}
}

func (g *Gateway) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(apperrors.Normalize(err).Code)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	g.obs.RecordOperation(ctx, op, time.Since(start), outcome)
	span.End()
}
