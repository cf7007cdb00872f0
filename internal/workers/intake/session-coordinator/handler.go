// internal/workers/intake/session-coordinator/handler.go
package sessioncoordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/keyedlock"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/common/metrics"
	"applicant-gate/internal/models"
	"applicant-gate/internal/store"
	"applicant-gate/internal/workers/intake/questionnaire"
)

const ComponentName = "session-coordinator"

// Reviewer receives committed submissions. Its failures never undo a commit.
type Reviewer interface {
	SubmitForReview(ctx context.Context, sub models.Submission) error
}

// Handler owns the live questionnaire sessions, at most one per applicant.
type Handler struct {
	store    store.Store
	machine  *questionnaire.Machine
	reviewer Reviewer
	keys     *keyedlock.Locker
	logger   logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uint64]*Session
}

func NewHandler(st store.Store, reviewer Reviewer, log logger.Logger) *Handler {
	return &Handler{
		store:    st,
		machine:  questionnaire.NewMachine(),
		reviewer: reviewer,
		keys:     keyedlock.New(),
		logger:   logger.ForComponent(log, ComponentName),
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[uint64]*Session),
	}
}

// Handle processes one applicant event: begin, text, choice or cancel.
func (h *Handler) Handle(ctx context.Context, ev models.Event) (*Result, error) {
	switch ev.Kind {
	case models.EventBegin:
		return h.Begin(ctx, ev.ApplicantID, ev.DisplayName)
	case models.EventText:
		return h.Answer(ctx, ev.ApplicantID, questionnaire.Text(ev.Value))
	case models.EventChoice:
		return h.Answer(ctx, ev.ApplicantID, questionnaire.ChoiceFor(ev.Slot, ev.Value))
	case models.EventCancel:
		return h.Answer(ctx, ev.ApplicantID, questionnaire.Cancel())
	default:
		return nil, fmt.Errorf("%w: %s is not an applicant event", apperrors.ErrValidation, ev.Kind)
	}
}

// Begin starts a fresh questionnaire unless the applicant's status forbids it.
// An existing session is replaced.
func (h *Handler) Begin(ctx context.Context, id uint64, displayName string) (*Result, error) {
	unlock := h.keys.Lock(id)
	defer unlock()

	status, known, err := h.store.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	if known {
		switch status {
		case models.StatusApproved:
			return &Result{Outcome: OutcomeAlreadyApproved}, nil
		case models.StatusRejected:
			return &Result{Outcome: OutcomeRejectedNoRetry}, nil
		}

		live, err := h.store.HasLiveSubmission(ctx, id)
		if err != nil {
			return nil, err
		}
		if live {
			return &Result{Outcome: OutcomeUnderReview}, nil
		}
	}

	if err := h.store.UpsertApplicant(ctx, id, displayName); err != nil {
		return nil, err
	}

	start := h.machine.Start()
	replaced := h.putSession(&Session{
		ApplicantID: id,
		DisplayName: displayName,
		State:       start,
		StartedAt:   h.now(),
	})

	h.logger.Info("session started", map[string]interface{}{
		"applicantId": id,
		"replaced":    replaced,
	})

	return &Result{Outcome: OutcomeStarted, Prompt: h.machine.PromptFor(start)}, nil
}

// Answer feeds one input to the applicant's live session.
func (h *Handler) Answer(ctx context.Context, id uint64, in questionnaire.Input) (*Result, error) {
	res, committed, err := h.answerLocked(ctx, id, in)
	if err != nil || committed == nil {
		return res, err
	}

	// Review delivery runs after the applicant lock is released.
	if err := h.reviewer.SubmitForReview(ctx, *committed); err != nil {
		h.logger.Error("submission committed but review delivery failed", map[string]interface{}{
			"applicantId": id,
			"error":       err,
		})
	}
	return res, nil
}

func (h *Handler) answerLocked(ctx context.Context, id uint64, in questionnaire.Input) (*Result, *models.Submission, error) {
	unlock := h.keys.Lock(id)
	defer unlock()

	sess, ok := h.getSession(id)
	if !ok {
		return &Result{Outcome: OutcomeStale}, nil, nil
	}

	tr := h.machine.Apply(sess.State, sess.Answers, in)
	switch tr.Outcome {
	case questionnaire.Ignored:
		return &Result{Outcome: OutcomeReprompt, Prompt: h.machine.PromptFor(sess.State)}, nil, nil

	case questionnaire.Advanced:
		sess.State = tr.State
		sess.Answers = tr.Answers
		return &Result{Outcome: OutcomeAdvanced, Prompt: tr.Prompt}, nil, nil

	case questionnaire.Cancelled:
		h.dropSession(id)
		h.logger.Info("session cancelled", map[string]interface{}{
			"applicantId": id,
			"state":       sess.State.String(),
		})
		return &Result{Outcome: OutcomeCancelled}, nil, nil
	}

	sub := models.Submission{
		ApplicantID: id,
		DisplayName: sess.DisplayName,
		Answers:     tr.Answers,
		CreatedAt:   h.now(),
	}

	if err := h.store.CommitSubmission(ctx, sub); err != nil {
		if apperrors.IsConflict(err) {
			h.dropSession(id)
			metrics.SubmissionsTotal.WithLabelValues("conflict").Inc()
			h.logger.Warn("submission already under review", map[string]interface{}{
				"applicantId": id,
			})
			return &Result{Outcome: OutcomeUnderReview}, nil, nil
		}
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		// Transient failures keep the answers; resending the last one retries.
		if !apperrors.IsRetryable(err) {
			h.dropSession(id)
		}
		return nil, nil, err
	}

	h.dropSession(id)
	metrics.SubmissionsTotal.WithLabelValues("committed").Inc()
	h.logger.Info("submission committed", map[string]interface{}{
		"applicantId": id,
	})
	return &Result{Outcome: OutcomeSubmitted, Submission: &sub}, &sub, nil
}

// DropSession discards the applicant's live session, if any.
func (h *Handler) DropSession(id uint64) bool {
	unlock := h.keys.Lock(id)
	defer unlock()
	return h.dropSession(id)
}

// Session returns a copy of the live session.
func (h *Handler) Session(id uint64) (Session, bool) {
	unlock := h.keys.Lock(id)
	defer unlock()

	s, ok := h.getSession(id)
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (h *Handler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) getSession(id uint64) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Handler) putSession(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, replaced := h.sessions[s.ApplicantID]
	h.sessions[s.ApplicantID] = s
	metrics.ActiveSessions.Set(float64(len(h.sessions)))
	return replaced
}

func (h *Handler) dropSession(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	metrics.ActiveSessions.Set(float64(len(h.sessions)))
	return ok
}
