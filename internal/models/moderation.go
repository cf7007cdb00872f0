// internal/models/moderation.go
package models

import "time"

// Decision is a moderator verdict.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Status is the applicant status a decision moves to.
func (d Decision) Status() Status {
	return Status(d)
}

// ModerationRecord is an append-only audit row.
type ModerationRecord struct {
	ID          int64     `json:"id" db:"id"`
	ApplicantID uint64    `json:"applicantId" db:"applicant_id"`
	ModeratorID int64     `json:"moderatorId" db:"moderator_id"`
	Decision    Decision  `json:"decision" db:"decision"`
	DecidedAt   time.Time `json:"decidedAt" db:"decided_at"`
}
