// internal/workers/intake/session-coordinator/models.go
package sessioncoordinator

import (
	"time"

	"applicant-gate/internal/models"
	"applicant-gate/internal/workers/intake/questionnaire"
)

// Outcome tells the transport which reply to render.
type Outcome string

const (
	OutcomeAlreadyApproved Outcome = "already_approved"
	OutcomeRejectedNoRetry Outcome = "rejected_no_retry"
	OutcomeUnderReview     Outcome = "under_review"
	OutcomeStarted         Outcome = "started"
	OutcomeStale           Outcome = "stale"
	OutcomeReprompt        Outcome = "reprompt"
	OutcomeAdvanced        Outcome = "advanced"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeSubmitted       Outcome = "submitted"
)

// Result is what one applicant event produced.
type Result struct {
	Outcome Outcome
	// Prompt is the question to (re)ask, set for Started, Reprompt and Advanced.
	Prompt     *questionnaire.Prompt
	Submission *models.Submission
}

// Session is the transient in-progress questionnaire of one applicant.
// It is never persisted.
type Session struct {
	ApplicantID uint64
	DisplayName string
	State       questionnaire.State
	Answers     models.Answers
	StartedAt   time.Time
}
