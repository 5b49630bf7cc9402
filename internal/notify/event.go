// Package notify delivers post-commit events to side-effect hooks: employee
// notifications, workflow messages and the audit trail. Hooks run after the
// write they describe has committed and never affect its outcome.
package notify

import (
	"time"

	"hiring-entitlements/internal/models"
)

type EventType string

const (
	EventApplicationSubmitted EventType = "application.submitted"
	EventStatusChanged        EventType = "application.status_changed"
	EventContactRevealed      EventType = "contact.revealed"
)

// Event is one committed change. Exactly one of the payload fields is set.
type Event struct {
	ID          string               `json:"id"`
	Type        EventType            `json:"type"`
	OccurredAt  time.Time            `json:"occurred_at"`
	Application *models.Application  `json:"application,omitempty"`
	Change      *models.StatusChange `json:"change,omitempty"`
	Reveal      *RevealRecord        `json:"reveal,omitempty"`
}

// RevealRecord describes a disclosure without the disclosed fields.
type RevealRecord struct {
	EmployerID    string    `json:"employer_id"`
	EmployeeID    string    `json:"employee_id"`
	ApplicationID string    `json:"application_id,omitempty"`
	ConsumedQuota bool      `json:"consumed_quota"`
	FreeView      bool      `json:"free_view"`
	ViewedAt      time.Time `json:"viewed_at"`
}

func StatusChanged(change models.StatusChange) Event {
	return Event{Type: EventStatusChanged, OccurredAt: change.ChangedAt, Change: &change}
}

func ApplicationSubmitted(app models.Application) Event {
	return Event{Type: EventApplicationSubmitted, OccurredAt: app.AppliedAt, Application: &app}
}

func ContactRevealed(r RevealRecord) Event {
	return Event{Type: EventContactRevealed, OccurredAt: r.ViewedAt, Reveal: &r}
}

// AccountID is the account the event is correlated by.
func (e Event) AccountID() string {
	switch {
	case e.Change != nil:
		return e.Change.EmployeeID
	case e.Application != nil:
		return e.Application.EmployeeID
	case e.Reveal != nil:
		return e.Reveal.EmployerID
	}
	return ""
}
