package models

import "time"

// AccountKind distinguishes the two sides of the marketplace.
type AccountKind string

const (
	AccountEmployer AccountKind = "employer"
	AccountEmployee AccountKind = "employee"
)

func (k AccountKind) Valid() bool {
	return k == AccountEmployer || k == AccountEmployee
}

// Subscription is a purchased plan period for one account.
type Subscription struct {
	ID           string      `json:"id"`
	AccountID    string      `json:"account_id"`
	Kind         AccountKind `json:"kind"`
	PlanID       string      `json:"plan_id"`
	StartedAt    time.Time   `json:"started_at"`
	ValidityDays int         `json:"validity_days"`
}

// ExpiresAt is started_at + validity_days.
func (s Subscription) ExpiresAt() time.Time {
	return s.StartedAt.AddDate(0, 0, s.ValidityDays)
}

// IsExpired reports whether the period lapsed before now.
func (s Subscription) IsExpired(now time.Time) bool {
	return s.ExpiresAt().Before(now)
}
