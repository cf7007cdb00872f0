// internal/workers/moderation/moderation-workflow/handler.go
package moderationworkflow

import (
	"context"
	"fmt"
	"time"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/common/metrics"
	"applicant-gate/internal/models"
	"applicant-gate/internal/store"

	"github.com/google/uuid"
)

const (
	ComponentName    = "moderation-workflow"
	EventTypeDecided = "applicant.decided"
)

type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *models.Keyboard) error
}

type Mailer interface {
	Send(ctx context.Context, subject, body string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) (string, error)
}

// StatsInvalidator drops cached admin counters after a decision.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context)
}

// SessionDropper discards an applicant's in-progress questionnaire.
type SessionDropper interface {
	DropSession(applicantID uint64) bool
}

// Deps are the collaborators of the workflow. Mailer, Events, Stats and
// Sessions are optional.
type Deps struct {
	Store    store.Store
	Claims   Claims
	Notifier Notifier
	Mailer   Mailer
	Events   EventPublisher
	Stats    StatsInvalidator
	Sessions SessionDropper
}

type Handler struct {
	config *Config
	deps   Deps
	logger logger.Logger
}

func NewHandler(cfg *Config, deps Deps, log logger.Logger) *Handler {
	if deps.Claims == nil {
		deps.Claims = NewLocalClaims(cfg.ClaimTTL)
	}
	return &Handler{
		config: cfg,
		deps:   deps,
		logger: logger.ForComponent(log, ComponentName),
	}
}

// AttachSessions sets the session owner once it exists; the coordinator is
// built on top of this handler.
func (h *Handler) AttachSessions(sessions SessionDropper) {
	h.deps.Sessions = sessions
}

// IsModerator reports whether actorID may use moderator controls.
func (h *Handler) IsModerator(actorID int64) bool {
	return actorID != 0 && actorID == h.config.AdminChatID
}

// SubmitForReview delivers the review card to the moderator. A failure is
// reported as DELIVERY_FAILED; the submission itself stays committed.
func (h *Handler) SubmitForReview(ctx context.Context, sub models.Submission) error {
	card := ReviewCard(sub)

	if h.deps.Mailer != nil {
		subject := fmt.Sprintf("New applicant %d: %s", sub.ApplicantID, sub.Answers.Name)
		if msgID, err := h.deps.Mailer.Send(ctx, subject, card); err != nil {
			metrics.DeliveryFailures.WithLabelValues(metrics.RecipientEmail).Inc()
			h.logger.Warn("review mail not sent", map[string]interface{}{
				"applicantId": sub.ApplicantID,
				"error":       err,
			})
		} else {
			h.logger.Debug("review mail sent", map[string]interface{}{
				"applicantId": sub.ApplicantID,
				"messageId":   msgID,
			})
		}
	}

	if err := h.deps.Notifier.SendMessage(ctx, h.config.AdminChatID, card, ReviewKeyboard(sub.ApplicantID)); err != nil {
		metrics.DeliveryFailures.WithLabelValues(metrics.RecipientModerator).Inc()
		if !apperrors.IsDelivery(err) {
			err = apperrors.NewDeliveryError(h.config.AdminChatID, err)
		}
		h.logger.Error("review card not delivered", map[string]interface{}{
			"applicantId": sub.ApplicantID,
			"error":       err,
		})
		return err
	}

	h.logger.Info("submission sent for review", map[string]interface{}{
		"applicantId": sub.ApplicantID,
	})
	return nil
}

// Decide applies a moderator decision. Only a pending applicant can be
// decided, and each review card control works once.
func (h *Handler) Decide(ctx context.Context, in DecisionInput) (*DecisionResult, error) {
	log := h.logger.WithFields(map[string]interface{}{
		"applicantId": in.ApplicantID,
		"moderatorId": in.ModeratorID,
		"decision":    string(in.Decision),
	})

	if !h.IsModerator(in.ModeratorID) {
		h.countDecision(in.Decision, "forbidden")
		return nil, apperrors.NewForbiddenError(in.ModeratorID)
	}
	if !in.Decision.Valid() {
		return nil, apperrors.NewValidationError("unknown decision: " + string(in.Decision))
	}

	claimed, err := h.deps.Claims.Claim(ctx, in.ApplicantID, in.ModeratorID)
	if err != nil {
		// The store status check below still guards against double decisions.
		log.Warn("decision claim unavailable", map[string]interface{}{"error": err})
		claimed = true
	}
	if !claimed {
		h.countDecision(in.Decision, "duplicate")
		return nil, apperrors.NewConflictError("already handled",
			fmt.Sprintf("applicantId: %d", in.ApplicantID))
	}

	status, known, err := h.deps.Store.GetStatus(ctx, in.ApplicantID)
	if err != nil {
		h.release(ctx, in.ApplicantID)
		return nil, err
	}
	if !known {
		h.release(ctx, in.ApplicantID)
		h.countDecision(in.Decision, "not_found")
		return nil, apperrors.NewNotFoundError("applicant", in.ApplicantID)
	}
	if status != models.StatusPending {
		h.countDecision(in.Decision, "conflict")
		return nil, apperrors.NewConflictError("already decided",
			fmt.Sprintf("applicantId: %d, status: %s", in.ApplicantID, status))
	}

	// A card outlives a purge; the applicant may be back mid-questionnaire.
	live, err := h.deps.Store.HasLiveSubmission(ctx, in.ApplicantID)
	if err != nil {
		h.release(ctx, in.ApplicantID)
		return nil, err
	}
	if !live {
		h.release(ctx, in.ApplicantID)
		h.countDecision(in.Decision, "no_submission")
		return nil, apperrors.NewConflictError("no submission under review",
			fmt.Sprintf("applicantId: %d", in.ApplicantID))
	}

	record, err := h.deps.Store.RecordDecision(ctx, in.ApplicantID, in.ModeratorID, in.Decision)
	if err != nil {
		h.release(ctx, in.ApplicantID)
		h.countDecision(in.Decision, "error")
		return nil, err
	}
	h.countDecision(in.Decision, "recorded")
	log.Info("decision recorded", map[string]interface{}{"recordId": record.ID})

	if h.deps.Sessions != nil && h.deps.Sessions.DropSession(in.ApplicantID) {
		log.Info("live session discarded after decision", nil)
	}

	if h.deps.Stats != nil {
		h.deps.Stats.InvalidateStats(ctx)
	}

	result := &DecisionResult{Record: record, Notified: true}

	text, kb := verdict(in.Decision, h.config.GroupLink)
	if err := h.deps.Notifier.SendMessage(ctx, int64(in.ApplicantID), text, kb); err != nil {
		metrics.DeliveryFailures.WithLabelValues(metrics.RecipientApplicant).Inc()
		if !apperrors.IsDelivery(err) {
			err = apperrors.NewDeliveryError(int64(in.ApplicantID), err)
		}
		result.Notified = false
		result.DeliveryErr = err
		log.Error("verdict not delivered, decision stands", map[string]interface{}{"error": err})
	}

	h.publishDecided(ctx, record, result.Notified)
	return result, nil
}

// ResendPending re-delivers review cards for every pending applicant with a
// live submission. It returns how many cards went out.
func (h *Handler) ResendPending(ctx context.Context) (int, error) {
	ids, err := h.deps.Store.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, id := range ids {
		sub, err := h.deps.Store.GetSubmission(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return sent, err
		}
		if err := h.SubmitForReview(ctx, *sub); err != nil {
			continue
		}
		sent++
	}

	h.logger.Info("pending reviews re-announced", map[string]interface{}{
		"pending": len(ids),
		"sent":    sent,
	})
	return sent, nil
}

// ReleaseClaim forgets the decision claim of an applicant, used on purge.
func (h *Handler) ReleaseClaim(ctx context.Context, applicantID uint64) error {
	return h.deps.Claims.Release(ctx, applicantID)
}

func (h *Handler) release(ctx context.Context, applicantID uint64) {
	if err := h.deps.Claims.Release(ctx, applicantID); err != nil {
		h.logger.Warn("decision claim not released", map[string]interface{}{
			"applicantId": applicantID,
			"error":       err,
		})
	}
}

func (h *Handler) publishDecided(ctx context.Context, record *models.ModerationRecord, notified bool) {
	if h.deps.Events == nil {
		return
	}

	evt := models.DecidedEvent{
		EventID:     uuid.New().String(),
		Type:        EventTypeDecided,
		ApplicantID: record.ApplicantID,
		ModeratorID: record.ModeratorID,
		Decision:    record.Decision,
		DecidedAt:   record.DecidedAt.Format(time.RFC3339),
		Notified:    notified,
	}

	if _, err := h.deps.Events.Publish(ctx, EventTypeDecided, evt); err != nil {
		metrics.DeliveryFailures.WithLabelValues(metrics.RecipientEvents).Inc()
		h.logger.Warn("decision event not published", map[string]interface{}{
			"applicantId": record.ApplicantID,
			"eventId":     evt.EventID,
			"error":       err,
		})
	}
}

func (h *Handler) countDecision(decision models.Decision, result string) {
	metrics.DecisionsTotal.WithLabelValues(string(decision), result).Inc()
}
