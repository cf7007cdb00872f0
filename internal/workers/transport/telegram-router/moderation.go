package telegramrouter

import (
	"context"
	"fmt"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/models"
	moderationworkflow "applicant-gate/internal/workers/moderation/moderation-workflow"
)

// handleDecision records a review card press, then retires the card.
func (r *Router) handleDecision(ctx context.Context, ev models.Event) error {
	res, err := r.moderation.Decide(ctx, moderationworkflow.DecisionInput{
		ApplicantID: ev.ApplicantID,
		ModeratorID: ev.ModeratorID,
		Decision:    ev.Decision,
		CallbackID:  ev.CallbackID,
	})
	if err != nil {
		// A card whose applicant is decided or gone must not stay pressable.
		if !apperrors.IsForbidden(err) {
			r.clearMarkup(ctx, ev.ChatID, ev.MessageID)
		}
		return err
	}

	ack := TextDecidedApproved
	if res.Record.Decision == models.DecisionRejected {
		ack = TextDecidedRejected
	}
	r.answer(ctx, ev.CallbackID, ack, false)

	if ev.MessageID != 0 && ev.Value != "" {
		r.edit(ctx, ev.ChatID, ev.MessageID, moderationworkflow.DecidedCard(ev.Value, res.Record), nil)
	} else {
		r.clearMarkup(ctx, ev.ChatID, ev.MessageID)
	}

	if !res.Notified {
		r.send(ctx, ev.ChatID, fmt.Sprintf(TextNotNotified, ev.ApplicantID), nil)
	}
	return nil
}
