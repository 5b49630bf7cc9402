package models

import "time"

type Job struct {
	ID         string    `json:"id"`
	EmployerID string    `json:"employer_id"`
	Title      string    `json:"title"`
	PostedAt   time.Time `json:"posted_at"`
}

// Employee is the directory record of a job seeker, private contact included.
type Employee struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Headline string         `json:"headline,omitempty"`
	Contact  ContactDetails `json:"-"`
}

// EmployeeSummary is the public part of an Employee.
type EmployeeSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Headline string `json:"headline,omitempty"`
}

func (e Employee) Summary() EmployeeSummary {
	return EmployeeSummary{ID: e.ID, Name: e.Name, Headline: e.Headline}
}
