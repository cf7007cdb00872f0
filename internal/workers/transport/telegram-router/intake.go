package telegramrouter

import (
	"context"
	"fmt"

	"applicant-gate/internal/models"
	"applicant-gate/internal/workers/intake/questionnaire"
	sessioncoordinator "applicant-gate/internal/workers/intake/session-coordinator"
	moderationworkflow "applicant-gate/internal/workers/moderation/moderation-workflow"
)

func (r *Router) handleIntake(ctx context.Context, ev models.Event) error {
	res, err := r.intake.Handle(ctx, ev)
	if err != nil {
		return err
	}

	chatID := ev.ChatID
	if ev.Kind == models.EventChoice {
		r.renderChoice(ctx, ev, res)
		return nil
	}

	switch res.Outcome {
	case sessioncoordinator.OutcomeStarted:
		r.send(ctx, chatID, TextWelcome, nil)
		r.ask(ctx, chatID, res.Prompt)
	case sessioncoordinator.OutcomeAlreadyApproved:
		r.send(ctx, chatID, TextAlreadyApproved, moderationworkflow.JoinKeyboard(r.config.GroupLink))
	case sessioncoordinator.OutcomeRejectedNoRetry:
		r.send(ctx, chatID, TextRejectedNoRetry, nil)
	case sessioncoordinator.OutcomeUnderReview:
		r.send(ctx, chatID, TextUnderReview, nil)
	case sessioncoordinator.OutcomeStale:
		r.send(ctx, chatID, TextNoSession, nil)
	case sessioncoordinator.OutcomeReprompt:
		if res.Prompt != nil && len(res.Prompt.Choices) > 0 {
			r.send(ctx, chatID, TextChooseOption, nil)
		}
		r.ask(ctx, chatID, res.Prompt)
	case sessioncoordinator.OutcomeAdvanced:
		r.ask(ctx, chatID, res.Prompt)
	case sessioncoordinator.OutcomeCancelled:
		r.send(ctx, chatID, TextCancelled, nil)
	case sessioncoordinator.OutcomeSubmitted:
		r.send(ctx, chatID, TextSubmitted, nil)
	}
	return nil
}

// renderChoice replies to a pressed answer button. An accepted answer
// replaces the question's buttons with the chosen label.
func (r *Router) renderChoice(ctx context.Context, ev models.Event, res *sessioncoordinator.Result) {
	switch res.Outcome {
	case sessioncoordinator.OutcomeAdvanced, sessioncoordinator.OutcomeSubmitted:
		r.answer(ctx, ev.CallbackID, "", false)
		answered := fmt.Sprintf("%s\n\n"+TextYourAnswer, Question(ev.Slot), questionnaire.ChoiceLabel(ev.Value))
		r.edit(ctx, ev.ChatID, ev.MessageID, answered, nil)
		if res.Outcome == sessioncoordinator.OutcomeSubmitted {
			r.send(ctx, ev.ChatID, TextSubmitted, nil)
			return
		}
		r.ask(ctx, ev.ChatID, res.Prompt)

	case sessioncoordinator.OutcomeReprompt:
		r.answer(ctx, ev.CallbackID, TextChooseOption, false)

	case sessioncoordinator.OutcomeStale:
		r.answer(ctx, ev.CallbackID, TextNoSession, false)
		r.clearMarkup(ctx, ev.ChatID, ev.MessageID)

	case sessioncoordinator.OutcomeUnderReview:
		r.answer(ctx, ev.CallbackID, TextUnderReview, false)
		r.send(ctx, ev.ChatID, TextUnderReview, nil)

	default:
		r.answer(ctx, ev.CallbackID, "", false)
	}
}

func (r *Router) ask(ctx context.Context, chatID int64, p *questionnaire.Prompt) {
	if p == nil {
		return
	}
	r.send(ctx, chatID, Question(p.Slot), promptKeyboard(p))
}

func (r *Router) clearMarkup(ctx context.Context, chatID, messageID int64) {
	if messageID == 0 {
		return
	}
	if err := r.client.ClearReplyMarkup(ctx, chatID, messageID); err != nil {
		r.logger.Debug("markup not cleared", map[string]interface{}{
			"chatId":    chatID,
			"messageId": messageID,
			"error":     err,
		})
	}
}
