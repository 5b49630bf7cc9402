// internal/models/application.go
package models

import "time"

// ApplicationStatus is the recruiting state of an Application. The legal moves
// between states live in internal/engine/lifecycle.
type ApplicationStatus string

const (
	StatusApplied            ApplicationStatus = "applied"
	StatusShortlisted        ApplicationStatus = "shortlisted"
	StatusInterviewScheduled ApplicationStatus = "interview_scheduled"
	StatusSelected           ApplicationStatus = "selected"
	StatusRejected           ApplicationStatus = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ApplicationStatus{
	StatusApplied,
	StatusShortlisted,
	StatusInterviewScheduled,
	StatusSelected,
	StatusRejected,
}

type Application struct {
	ID                string            `json:"id"`
	JobID             string            `json:"job_id"`
	EmployeeID        string            `json:"employee_id"`
	EmployerID        string            `json:"employer_id"`
	Status            ApplicationStatus `json:"status"`
	AppliedAt         time.Time         `json:"applied_at"`
	InterviewDate     string            `json:"interview_date,omitempty"`
	InterviewTime     string            `json:"interview_time,omitempty"`
	InterviewLocation string            `json:"interview_location,omitempty"`
	Version           int64             `json:"version"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// StatusChange is one row of an application's soft history.
type StatusChange struct {
	ApplicationID     string            `json:"application_id"`
	JobID             string            `json:"job_id"`
	EmployeeID        string            `json:"employee_id"`
	EmployerID        string            `json:"employer_id"`
	From              ApplicationStatus `json:"from"`
	To                ApplicationStatus `json:"to"`
	InterviewDate     string            `json:"interview_date,omitempty"`
	InterviewTime     string            `json:"interview_time,omitempty"`
	InterviewLocation string            `json:"interview_location,omitempty"`
	ChangedBy         string            `json:"changed_by"`
	ChangedAt         time.Time         `json:"changed_at"`
}

// NewStatusChange describes the move from prev to next.
func NewStatusChange(prev, next Application, changedBy string) StatusChange {
	return StatusChange{
		ApplicationID:     next.ID,
		JobID:             next.JobID,
		EmployeeID:        next.EmployeeID,
		EmployerID:        next.EmployerID,
		From:              prev.Status,
		To:                next.Status,
		InterviewDate:     next.InterviewDate,
		InterviewTime:     next.InterviewTime,
		InterviewLocation: next.InterviewLocation,
		ChangedBy:         changedBy,
		ChangedAt:         next.UpdatedAt,
	}
}
