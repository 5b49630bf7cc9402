package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/common/metrics"
	"hiring-entitlements/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	HeaderRequestID = "X-Request-ID"

	ctxRequestID ctxKey = "request_id"
)

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestIDMiddleware propagates or assigns X-Request-ID and stores a
// request-scoped logger in the context.
func (s *Server) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), ctxRequestID, id)
		ctx = logger.IntoContext(ctx, s.logger.WithFields(map[string]interface{}{"requestId": id}))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())

		logger.FromContext(r.Context(), s.logger).Debug("request", map[string]interface{}{
			"method":     r.Method,
			"route":      route,
			"status":     rec.status,
			"durationMs": elapsed.Milliseconds(),
		})
	})
}

func (s *Server) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.writeError(w, r, apperrors.NewInternalError(fmt.Errorf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// TimeoutMiddleware bounds the request context.
func (s *Server) TimeoutMiddleware(next http.Handler) http.Handler {
	if s.config.RequestTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware verifies the bearer token and requires the given role.
func (s *Server) AuthMiddleware(role models.AccountKind) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			p, err := s.verifier.Verify(token)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			if p.Role != role {
				s.writeError(w, r, apperrors.NewForbiddenError(fmt.Sprintf("requires %s account", role)))
				return
			}

			ctx := withPrincipal(r.Context(), p)
			ctx = logger.IntoContext(ctx, logger.FromContext(ctx, s.logger).WithFields(map[string]interface{}{
				"accountId": p.AccountID,
			}))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RevealRateLimitMiddleware throttles contact reveals per employer.
func (s *Server) RevealRateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		if p != nil && !s.revealLimiter.Allow(p.AccountID, time.Now()) {
			s.writeError(w, r, apperrors.NewRateLimitedError(p.AccountID))
			return
		}
		next.ServeHTTP(w, r)
	})
}
