// Package memory is an in-process Store with the same constraints as the
// Postgres schema: unique (job, employee) applications, one contact view per
// (employer, employee), versioned status updates and per-employer locking.
// It backs tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/models"
	"hiring-entitlements/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type pairKey struct {
	a, b string
}

type Store struct {
	mu            sync.RWMutex
	applications  map[string]models.Application
	byJobEmployee map[pairKey]string
	history       map[string][]models.StatusChange
	jobs          map[string]models.Job
	employees     map[string]models.Employee
	subscriptions []models.Subscription
	views         map[pairKey]models.ContactView

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		applications:  map[string]models.Application{},
		byJobEmployee: map[pairKey]string{},
		history:       map[string][]models.StatusChange{},
		jobs:          map[string]models.Job{},
		employees:     map[string]models.Employee{},
		views:         map[pairKey]models.ContactView{},
		locks:         map[string]*sync.Mutex{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// --- seeding ---

func (s *Store) PutJob(job models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *Store) PutEmployee(e models.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

func (s *Store) PutSubscription(sub models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = append(s.subscriptions, sub)
}

// PutContactView inserts a view row directly, bypassing the ledger.
func (s *Store) PutContactView(v models.ContactView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[pairKey{v.EmployerID, v.EmployeeID}] = v
}

// ContactViewsOf returns every view row of an employer.
func (s *Store) ContactViewsOf(employerID string) []models.ContactView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ContactView
	for k, v := range s.views {
		if k.a == employerID {
			out = append(out, v)
		}
	}
	return out
}

// --- applications ---

func (s *Store) CreateApplication(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{app.JobID, app.EmployeeID}
	if _, exists := s.byJobEmployee[key]; exists {
		return apperrors.NewDuplicateApplicationError(app.JobID, app.EmployeeID)
	}
	if app.Version == 0 {
		app.Version = 1
	}
	s.applications[app.ID] = *app
	s.byJobEmployee[key] = app.ID
	return nil
}

func (s *Store) GetApplication(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return nil, apperrors.NewApplicationNotFoundError(id)
	}
	return &app, nil
}

func (s *Store) UpdateApplicationStatus(_ context.Context, next models.Application, change models.StatusChange) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.applications[next.ID]
	if !ok {
		return nil, apperrors.NewApplicationNotFoundError(next.ID)
	}
	if current.Version != next.Version {
		return nil, apperrors.NewConcurrencyConflictError(next.ID, next.Version)
	}

	stored := next
	stored.Version = current.Version + 1
	s.applications[next.ID] = stored
	s.history[next.ID] = append(s.history[next.ID], change)
	return &stored, nil
}

func (s *Store) ListApplicationsByJob(_ context.Context, jobID string) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Application
	for _, app := range s.applications {
		if app.JobID == jobID {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AppliedAt.Before(out[j].AppliedAt)
	})
	return out, nil
}

func (s *Store) ListStatusHistory(_ context.Context, applicationID string) ([]models.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.StatusChange(nil), s.history[applicationID]...), nil
}

// --- directory ---

func (s *Store) GetJob(_ context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NewJobNotFoundError(id)
	}
	return &job, nil
}

func (s *Store) GetEmployee(_ context.Context, id string) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, apperrors.NewEmployeeNotFoundError(id)
	}
	return &e, nil
}

func (s *Store) GetEmployees(_ context.Context, ids []string) (map[string]models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Employee, len(ids))
	for _, id := range ids {
		if e, ok := s.employees[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (s *Store) CountJobsSince(_ context.Context, employerID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, j := range s.jobs {
		if j.EmployerID == employerID && !j.PostedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ActiveSubscription(_ context.Context, accountID string, kind models.AccountKind, asOf time.Time) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Subscription
	for i := range s.subscriptions {
		sub := s.subscriptions[i]
		if sub.AccountID != accountID || sub.Kind != kind {
			continue
		}
		if sub.StartedAt.After(asOf) || sub.IsExpired(asOf) {
			continue
		}
		if latest == nil || sub.StartedAt.After(latest.StartedAt) {
			latest = &sub
		}
	}
	return latest, nil
}

// --- contact views ---

func (s *Store) GetContactView(_ context.Context, employerID, employeeID string) (*models.ContactView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[pairKey{employerID, employeeID}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *Store) CountConsumedViews(_ context.Context, employerID, windowID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countConsumedLocked(employerID, windowID), nil
}

func (s *Store) countConsumedLocked(employerID, windowID string) int {
	n := 0
	for k, v := range s.views {
		if k.a == employerID && v.ConsumedQuota && v.SubscriptionID == windowID {
			n++
		}
	}
	return n
}

func (s *Store) ListContactViews(_ context.Context, employerID string, employeeIDs []string) (map[string]models.ContactView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.ContactView, len(employeeIDs))
	for _, id := range employeeIDs {
		if v, ok := s.views[pairKey{employerID, id}]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *Store) employerLock(employerID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[employerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[employerID] = l
	}
	return l
}

// WithEmployerLock buffers fn's inserts and applies them only when fn succeeds.
func (s *Store) WithEmployerLock(ctx context.Context, employerID string, fn func(ctx context.Context, tx repository.ContactViewTx) error) error {
	l := s.employerLock(employerID)
	l.Lock()
	defer l.Unlock()

	tx := &memoryTx{store: s, pending: map[pairKey]models.ContactView{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewQueryTimeoutError("employer lock transaction")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range tx.pending {
		if _, exists := s.views[k]; exists {
			continue
		}
		s.views[k] = v
	}
	return nil
}

type memoryTx struct {
	store   *Store
	pending map[pairKey]models.ContactView
}

func (t *memoryTx) GetContactView(ctx context.Context, employerID, employeeID string) (*models.ContactView, error) {
	if v, ok := t.pending[pairKey{employerID, employeeID}]; ok {
		return &v, nil
	}
	return t.store.GetContactView(ctx, employerID, employeeID)
}

func (t *memoryTx) CountConsumedViews(ctx context.Context, employerID, windowID string) (int, error) {
	n, err := t.store.CountConsumedViews(ctx, employerID, windowID)
	if err != nil {
		return 0, err
	}
	for k, v := range t.pending {
		if k.a == employerID && v.ConsumedQuota && v.SubscriptionID == windowID {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) InsertContactView(ctx context.Context, v models.ContactView) (bool, error) {
	existing, err := t.GetContactView(ctx, v.EmployerID, v.EmployeeID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	t.pending[pairKey{v.EmployerID, v.EmployeeID}] = v
	return true, nil
}
