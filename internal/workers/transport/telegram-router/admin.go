package telegramrouter

import (
	"context"
	"fmt"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/models"
)

func (r *Router) handleAdmin(ctx context.Context, ev models.Event) error {
	if err := r.admin.Authorize(ev.ModeratorID); err != nil {
		return err
	}

	switch ev.Value {
	case models.AdminOpenPanel, models.AdminBack:
		r.answer(ctx, ev.CallbackID, "", false)
		r.screen(ctx, ev, TextAdminPanel, panelKeyboard())
		return nil

	case models.AdminStats:
		stats, err := r.admin.Stats(ctx, ev.ModeratorID)
		if err != nil {
			return err
		}
		r.answer(ctx, ev.CallbackID, "", false)
		r.screen(ctx, ev, statsText(stats), backKeyboard())
		return nil

	case models.AdminApproved:
		page, err := r.admin.ListApproved(ctx, ev.ModeratorID, ev.Page)
		if err != nil {
			return err
		}
		r.answer(ctx, ev.CallbackID, "", false)
		r.screen(ctx, ev, approvedText(page), pagerKeyboard(page))
		return nil

	case models.AdminPurge:
		return r.purge(ctx, ev)
	}

	return fmt.Errorf("%w: unknown admin action %q", apperrors.ErrValidation, ev.Value)
}

func (r *Router) purge(ctx context.Context, ev models.Event) error {
	if ev.ApplicantID == 0 {
		r.send(ctx, ev.ChatID, TextPurgeUsage, nil)
		return nil
	}

	err := r.admin.Purge(ctx, ev.ModeratorID, ev.ApplicantID)
	switch {
	case err == nil:
		r.send(ctx, ev.ChatID, fmt.Sprintf(TextPurged, ev.ApplicantID), nil)
	case apperrors.IsNotFound(err):
		r.send(ctx, ev.ChatID, fmt.Sprintf(TextPurgeNotFound, ev.ApplicantID), nil)
	default:
		return err
	}
	return nil
}

// screen updates the panel in place when it came from a button.
func (r *Router) screen(ctx context.Context, ev models.Event, text string, kb *models.Keyboard) {
	if ev.CallbackID != "" {
		r.edit(ctx, ev.ChatID, ev.MessageID, text, kb)
		return
	}
	r.send(ctx, ev.ChatID, text, kb)
}
