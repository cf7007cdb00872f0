// Package store is the durable ledger of applicants, their live submissions
// and the moderation decisions taken on them.
package store

import (
	"context"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/validation"
	"applicant-gate/internal/models"
)

// Store is the Application Store contract. Every method is atomic with
// respect to concurrent callers on the same applicant id.
type Store interface {
	// UpsertApplicant creates the applicant as pending if absent and always refreshes the display name.
	UpsertApplicant(ctx context.Context, id uint64, displayName string) error
	// GetStatus returns false when the applicant is unknown.
	GetStatus(ctx context.Context, id uint64) (models.Status, bool, error)
	HasLiveSubmission(ctx context.Context, id uint64) (bool, error)
	// CommitSubmission fails with NOT_FOUND for an unknown applicant and CONFLICT when a live submission exists.
	CommitSubmission(ctx context.Context, sub models.Submission) error
	// RecordDecision sets the status, appends a record and drops the live submission.
	RecordDecision(ctx context.Context, id uint64, moderatorID int64, decision models.Decision) (*models.ModerationRecord, error)
	// ListApproved orders by most recent approval, newest first.
	ListApproved(ctx context.Context, offset, limit int) ([]models.ApprovedApplicant, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)
	// PurgeApplicant erases the applicant, its submission and its records.
	PurgeApplicant(ctx context.Context, id uint64) error
	GetSubmission(ctx context.Context, id uint64) (*models.Submission, error)
	// ListPending returns pending applicants that have a live submission, oldest first.
	ListPending(ctx context.Context) ([]uint64, error)
	ListDecisions(ctx context.Context, id uint64) ([]models.ModerationRecord, error)
}

func validateSubmission(sub models.Submission) error {
	res, err := validation.ValidateAnswers(sub.Answers)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if !res.Valid {
		return apperrors.NewValidationError(validation.FormatValidationErrors(res.Errors)).
			WithMetadata("applicantId", sub.ApplicantID)
	}
	return nil
}

func validateDecision(decision models.Decision) error {
	if !decision.Valid() {
		return apperrors.NewValidationError("unknown decision: " + string(decision))
	}
	return nil
}

func validateStatus(status models.Status) error {
	if !status.Valid() {
		return apperrors.NewValidationError("unknown status: " + string(status))
	}
	return nil
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 10
	}
	return offset, limit
}
