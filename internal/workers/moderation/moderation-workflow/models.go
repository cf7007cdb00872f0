// internal/workers/moderation/moderation-workflow/models.go
package moderationworkflow

import "applicant-gate/internal/models"

// Callback data prefixes carried by the review card controls.
const (
	CallbackApprove = "approve:"
	CallbackReject  = "reject:"
)

// DecisionInput is one press of a review card control.
type DecisionInput struct {
	ApplicantID uint64
	ModeratorID int64
	Decision    models.Decision
	CallbackID  string
}

// DecisionResult is returned once the decision is durable.
type DecisionResult struct {
	Record   *models.ModerationRecord
	Notified bool
	// DeliveryErr is set when the applicant could not be reached. The
	// decision stands regardless.
	DeliveryErr error
}
