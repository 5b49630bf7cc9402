package notify

import (
	"context"
	"time"
)

const StatusChangedMessage = "application-status-changed"

type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey, messageID string, variables interface{}) error
}

// WorkflowPublisher forwards status changes to the recruiting process as Zeebe
// messages correlated by application id.
type WorkflowPublisher struct {
	publisher MessagePublisher
}

func NewWorkflowPublisher(p MessagePublisher) *WorkflowPublisher {
	return &WorkflowPublisher{publisher: p}
}

func (w *WorkflowPublisher) Name() string { return "workflow-publisher" }

type statusChangedVariables struct {
	ApplicationID     string `json:"applicationId"`
	JobID             string `json:"jobId"`
	EmployeeID        string `json:"employeeId"`
	EmployerID        string `json:"employerId"`
	FromStatus        string `json:"fromStatus"`
	ToStatus          string `json:"toStatus"`
	InterviewDate     string `json:"interviewDate,omitempty"`
	InterviewTime     string `json:"interviewTime,omitempty"`
	InterviewLocation string `json:"interviewLocation,omitempty"`
	ChangedAt         string `json:"changedAt"`
}

func (w *WorkflowPublisher) Handle(ctx context.Context, e Event) error {
	if e.Type != EventStatusChanged || e.Change == nil {
		return nil
	}
	c := e.Change
	vars := statusChangedVariables{
		ApplicationID:     c.ApplicationID,
		JobID:             c.JobID,
		EmployeeID:        c.EmployeeID,
		EmployerID:        c.EmployerID,
		FromStatus:        string(c.From),
		ToStatus:          string(c.To),
		InterviewDate:     c.InterviewDate,
		InterviewTime:     c.InterviewTime,
		InterviewLocation: c.InterviewLocation,
		ChangedAt:         c.ChangedAt.UTC().Format(time.RFC3339),
	}
	return w.publisher.PublishMessage(ctx, StatusChangedMessage, c.ApplicationID, e.ID, vars)
}
