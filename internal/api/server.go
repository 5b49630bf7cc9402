// Package api exposes the entitlement gateway over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/engine/gateway"
	"hiring-entitlements/internal/engine/lifecycle"
	"hiring-entitlements/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the gateway surface the handlers call.
type Service interface {
	TransitionStatus(ctx context.Context, employerID, applicationID string, target models.ApplicationStatus, p lifecycle.Payload) (*models.Application, error)
	StatusHistory(ctx context.Context, employerID, applicationID string) ([]models.StatusChange, error)
	RevealContact(ctx context.Context, employerID, applicationID string) (*gateway.RevealOutcome, error)
	CurrentPlan(ctx context.Context, accountID string, kind models.AccountKind) (*gateway.PlanSnapshot, error)
	ListJobApplications(ctx context.Context, employerID, jobID string) ([]gateway.ApplicationListing, error)
	Apply(ctx context.Context, employeeID, jobID string) (*models.Application, error)
}

var _ Service = (*gateway.Gateway)(nil)

// Check reports the readiness of one dependency.
type Check func(ctx context.Context) error

type Config struct {
	RequestTimeout      time.Duration
	RevealRatePerMinute int
	RevealBurst         int
	Version             string
}

type Server struct {
	service       Service
	verifier      *TokenVerifier
	checks        map[string]Check
	revealLimiter *KeyedLimiter
	errors        *apperrors.ErrorHandler
	config        Config
	logger        logger.Logger
}

func NewServer(service Service, verifier *TokenVerifier, checks map[string]Check, cfg Config, log logger.Logger) *Server {
	log = log.WithFields(map[string]interface{}{"component": "http-api"})
	return &Server{
		service:       service,
		verifier:      verifier,
		checks:        checks,
		revealLimiter: NewKeyedLimiter(cfg.RevealRatePerMinute, cfg.RevealBurst),
		errors:        apperrors.NewErrorHandler(log),
		config:        cfg,
		logger:        log,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.RequestIDMiddleware)
	r.Use(s.LoggingMiddleware)
	r.Use(s.RecoveryMiddleware)
	r.Use(s.TimeoutMiddleware)

	r.HandleFunc("/health", s.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	employer := r.PathPrefix("/employer").Subrouter()
	employer.Use(s.AuthMiddleware(models.AccountEmployer))
	employer.HandleFunc("/applications/{applicationId}/status", s.UpdateStatus).Methods(http.MethodPost)
	employer.HandleFunc("/applications/{applicationId}/history", s.StatusHistory).Methods(http.MethodGet)
	employer.Handle("/applications/{applicationId}/view-contact",
		s.RevealRateLimitMiddleware(http.HandlerFunc(s.ViewContact))).Methods(http.MethodPost)
	employer.HandleFunc("/plan/current", s.CurrentPlan(models.AccountEmployer)).Methods(http.MethodGet)
	employer.HandleFunc("/jobs/{jobId}/applications", s.ListJobApplications).Methods(http.MethodGet)

	employee := r.PathPrefix("/employee").Subrouter()
	employee.Use(s.AuthMiddleware(models.AccountEmployee))
	employee.HandleFunc("/jobs/{jobId}/apply", s.Apply).Methods(http.MethodPost)
	employee.HandleFunc("/plan/current", s.CurrentPlan(models.AccountEmployee)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]string{"code": "NOT_FOUND", "message": "route not found"},
		})
	})
	return r
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.errors.HandleHTTPError(w, r, RequestIDFrom(r.Context()), err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
