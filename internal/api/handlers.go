package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/common/validation"
	"hiring-entitlements/internal/engine/lifecycle"
	"hiring-entitlements/internal/models"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 64 << 10

var (
	statusUpdateSchema = validation.MustSchema(validation.StatusUpdateSchema)
	applySchema        = validation.MustSchema(validation.ApplySchema)
)

type statusUpdateRequest struct {
	Status            string `json:"status"`
	InterviewDate     string `json:"interview_date"`
	InterviewTime     string `json:"interview_time"`
	InterviewLocation string `json:"interview_location"`
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func principal(r *http.Request) *Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func (s *Server) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req statusUpdateRequest
	if err := statusUpdateSchema.Decode(body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.service.TransitionStatus(r.Context(), principal(r).AccountID, mux.Vars(r)["applicationId"],
		models.ApplicationStatus(req.Status), lifecycle.Payload{
			InterviewDate:     req.InterviewDate,
			InterviewTime:     req.InterviewTime,
			InterviewLocation: req.InterviewLocation,
		})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"application": app})
}

func (s *Server) StatusHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.StatusHistory(r.Context(), principal(r).AccountID, mux.Vars(r)["applicationId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []models.StatusChange{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (s *Server) ViewContact(w http.ResponseWriter, r *http.Request) {
	out, err := s.service.RevealContact(r.Context(), principal(r).AccountID, mux.Vars(r)["applicationId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) CurrentPlan(kind models.AccountKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.service.CurrentPlan(r.Context(), principal(r).AccountID, kind)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) ListJobApplications(w http.ResponseWriter, r *http.Request) {
	rows, err := s.service.ListJobApplications(r.Context(), principal(r).AccountID, mux.Vars(r)["jobId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": rows})
}

func (s *Server) Apply(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct{}
	if err := applySchema.Decode(body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.service.Apply(r.Context(), principal(r).AccountID, mux.Vars(r)["jobId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"application": app})
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.config.Version})
}

// Ready runs every dependency check with a short deadline.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			logger.FromContext(r.Context(), s.logger).Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}
