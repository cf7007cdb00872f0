// internal/models/applicant.go
package models

import "time"

// Status is the screening state of an applicant.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the three persisted values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Applicant is a row of the applicants table. ID is the Telegram user id.
type Applicant struct {
	ID          uint64    `json:"id" db:"id"`
	DisplayName string    `json:"displayName,omitempty" db:"display_name"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ApprovedApplicant is one line of the admin listing.
type ApprovedApplicant struct {
	ID          uint64    `json:"id"`
	DisplayName string    `json:"displayName,omitempty"`
	ApprovedAt  time.Time `json:"approvedAt"`
}
