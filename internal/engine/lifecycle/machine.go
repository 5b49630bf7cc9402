// Package lifecycle owns the application status policy: which moves are legal,
// which states are final, and what a move to interview_scheduled must carry.
package lifecycle

import (
	"strings"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/models"
)

// Payload carries the optional fields of a status change.
type Payload struct {
	InterviewDate     string `json:"interview_date,omitempty"`
	InterviewTime     string `json:"interview_time,omitempty"`
	InterviewLocation string `json:"interview_location,omitempty"`
}

// transitions is the complete edge table. Anything not listed is illegal.
var transitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusApplied: {
		models.StatusShortlisted,
		models.StatusInterviewScheduled,
		models.StatusRejected,
	},
	models.StatusShortlisted: {
		models.StatusInterviewScheduled,
		models.StatusSelected,
		models.StatusRejected,
	},
	models.StatusInterviewScheduled: {
		models.StatusSelected,
		models.StatusRejected,
	},
	models.StatusSelected: nil,
	models.StatusRejected: nil,
}

// ParseStatus maps a wire value onto the closed status set.
func ParseStatus(s string) (models.ApplicationStatus, bool) {
	st := models.ApplicationStatus(strings.TrimSpace(s))
	_, ok := transitions[st]
	return st, ok
}

// CanTransition reports whether from -> to is an edge of the table.
func CanTransition(from, to models.ApplicationStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable in one step from s.
func AllowedTargets(s models.ApplicationStatus) []models.ApplicationStatus {
	out := make([]models.ApplicationStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

func IsTerminal(s models.ApplicationStatus) bool {
	targets, known := transitions[s]
	return known && len(targets) == 0
}

// Transition validates a move of app to target and returns the updated copy.
// app itself is never modified. Version is left for the repository to bump.
func Transition(app models.Application, target models.ApplicationStatus, p Payload, now time.Time) (models.Application, error) {
	if _, known := transitions[target]; !known {
		return app, apperrors.NewInvalidTransitionError(string(app.Status), string(target))
	}
	if app.Status == target {
		return app, apperrors.NewAlreadyInStateError(string(target))
	}
	if !CanTransition(app.Status, target) {
		return app, apperrors.NewInvalidTransitionError(string(app.Status), string(target))
	}

	next := app
	if target == models.StatusInterviewScheduled {
		p = p.trimmed()
		if missing := p.missingInterviewFields(); len(missing) > 0 {
			return app, apperrors.NewMissingInterviewDetailsError(missing)
		}
		next.InterviewDate = p.InterviewDate
		next.InterviewTime = p.InterviewTime
		next.InterviewLocation = p.InterviewLocation
	}

	next.Status = target
	next.UpdatedAt = now.UTC()
	return next, nil
}

func (p Payload) trimmed() Payload {
	return Payload{
		InterviewDate:     strings.TrimSpace(p.InterviewDate),
		InterviewTime:     strings.TrimSpace(p.InterviewTime),
		InterviewLocation: strings.TrimSpace(p.InterviewLocation),
	}
}

func (p Payload) missingInterviewFields() []string {
	var missing []string
	if p.InterviewDate == "" {
		missing = append(missing, "interview_date")
	}
	if p.InterviewTime == "" {
		missing = append(missing, "interview_time")
	}
	if p.InterviewLocation == "" {
		missing = append(missing, "interview_location")
	}
	return missing
}
