package models

import "time"

// ContactDetails are the private fields disclosed by a reveal.
type ContactDetails struct {
	Email   string `json:"email"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
}

// ContactView records that an employer has seen an employee's contact details.
// One row per (EmployerID, EmployeeID); rows are never updated.
type ContactView struct {
	EmployerID     string         `json:"employer_id"`
	EmployeeID     string         `json:"employee_id"`
	ViewedAt       time.Time      `json:"viewed_at"`
	ConsumedQuota  bool           `json:"consumed_quota"`
	SubscriptionID string         `json:"subscription_id,omitempty"`
	Contact        ContactDetails `json:"contact"`
}
