package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/models"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Postgres implements Store on lib/pq. Mutations take a transaction-scoped
// advisory lock keyed by applicant id before touching any row.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
	logger  logger.Logger
	now     func() time.Time
}

func NewPostgres(db *sql.DB, timeout time.Duration, log logger.Logger) *Postgres {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Postgres{
		db:      db,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "store.postgres"}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (p *Postgres) UpsertApplicant(ctx context.Context, id uint64, displayName string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	now := p.now()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO applicants (id, display_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name, updated_at = EXCLUDED.updated_at`,
		int64(id), displayName, string(models.StatusPending), now)
	if err != nil {
		return apperrors.NewDatabaseError("upsert applicant", err)
	}
	return nil
}

func (p *Postgres) GetStatus(ctx context.Context, id uint64) (models.Status, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var status string
	err := p.db.QueryRowContext(ctx, `SELECT status FROM applicants WHERE id = $1`, int64(id)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewDatabaseError("get status", err)
	}
	return models.Status(status), true, nil
}

func (p *Postgres) HasLiveSubmission(ctx context.Context, id uint64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM submissions WHERE applicant_id = $1)`, int64(id)).Scan(&exists)
	if err != nil {
		return false, apperrors.NewDatabaseError("has live submission", err)
	}
	return exists, nil
}

func (p *Postgres) CommitSubmission(ctx context.Context, sub models.Submission) error {
	if err := validateSubmission(sub); err != nil {
		return err
	}

	return p.inApplicantTx(ctx, sub.ApplicantID, "commit submission", func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `
			SELECT status FROM applicants WHERE id = $1 FOR UPDATE`, int64(sub.ApplicantID)).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("applicant", sub.ApplicantID)
		}
		if err != nil {
			return apperrors.NewDatabaseError("commit submission: applicant check", err)
		}
		if models.Status(status) != models.StatusPending {
			return apperrors.NewConflictError("applicant already decided",
				fmt.Sprintf("applicantId: %d, status: %s", sub.ApplicantID, status))
		}

		var live bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM submissions WHERE applicant_id = $1)`, int64(sub.ApplicantID)).Scan(&live); err != nil {
			return apperrors.NewDatabaseError("commit submission: live check", err)
		}
		if live {
			return apperrors.NewConflictError("live submission already exists",
				fmt.Sprintf("applicantId: %d", sub.ApplicantID))
		}

		createdAt := sub.CreatedAt
		if createdAt.IsZero() {
			createdAt = p.now()
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE applicants SET display_name = $2, updated_at = $3 WHERE id = $1`,
			int64(sub.ApplicantID), sub.DisplayName, createdAt); err != nil {
			return apperrors.NewDatabaseError("commit submission: refresh name", err)
		}

		a := sub.Answers
		_, err = tx.ExecContext(ctx, `
			INSERT INTO submissions (
				applicant_id, display_name, name, tenure, preference,
				motivation, feedback, confidentiality, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			int64(sub.ApplicantID), sub.DisplayName, a.Name, a.Tenure, a.Preference,
			a.Motivation, a.Feedback, a.Confidentiality, createdAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return apperrors.NewConflictError("live submission already exists", pqErr.Message)
			}
			return apperrors.NewDatabaseError("commit submission: insert", err)
		}
		return nil
	})
}

func (p *Postgres) RecordDecision(ctx context.Context, id uint64, moderatorID int64, decision models.Decision) (*models.ModerationRecord, error) {
	if err := validateDecision(decision); err != nil {
		return nil, err
	}

	record := &models.ModerationRecord{
		ApplicantID: id,
		ModeratorID: moderatorID,
		Decision:    decision,
		DecidedAt:   p.now(),
	}

	err := p.inApplicantTx(ctx, id, "record decision", func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM applicants WHERE id = $1 FOR UPDATE`, int64(id)).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("applicant", id)
		}
		if err != nil {
			return apperrors.NewDatabaseError("record decision: lookup", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE applicants SET status = $2, updated_at = $3 WHERE id = $1`,
			int64(id), string(decision.Status()), record.DecidedAt); err != nil {
			return apperrors.NewDatabaseError("record decision: update status", err)
		}

		if err := tx.QueryRowContext(ctx, `
			INSERT INTO moderation_records (applicant_id, moderator_id, decision, decided_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			int64(id), moderatorID, string(decision), record.DecidedAt).Scan(&record.ID); err != nil {
			return apperrors.NewDatabaseError("record decision: append record", err)
		}

		// Answers are not retained once judged.
		if _, err := tx.ExecContext(ctx, `DELETE FROM submissions WHERE applicant_id = $1`, int64(id)); err != nil {
			return apperrors.NewDatabaseError("record decision: drop submission", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (p *Postgres) ListApproved(ctx context.Context, offset, limit int) ([]models.ApprovedApplicant, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	offset, limit = normalizePage(offset, limit)
	rows, err := p.db.QueryContext(ctx, `
		SELECT a.id, a.display_name, COALESCE(MAX(m.decided_at), a.updated_at) AS approved_at
		FROM applicants a
		LEFT JOIN moderation_records m
			ON m.applicant_id = a.id AND m.decision = 'approved'
		WHERE a.status = 'approved'
		GROUP BY a.id, a.display_name, a.updated_at
		ORDER BY approved_at DESC, a.id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list approved", err)
	}
	defer rows.Close()

	var out []models.ApprovedApplicant
	for rows.Next() {
		var (
			id  int64
			row models.ApprovedApplicant
		)
		if err := rows.Scan(&id, &row.DisplayName, &row.ApprovedAt); err != nil {
			return nil, apperrors.NewDatabaseError("list approved: scan", err)
		}
		row.ID = uint64(id)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list approved: rows", err)
	}
	return out, nil
}

func (p *Postgres) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	if err := validateStatus(status); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applicants WHERE status = $1`, string(status)).Scan(&count); err != nil {
		return 0, apperrors.NewDatabaseError("count by status", err)
	}
	return count, nil
}

func (p *Postgres) PurgeApplicant(ctx context.Context, id uint64) error {
	return p.inApplicantTx(ctx, id, "purge applicant", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM submissions WHERE applicant_id = $1`, int64(id)); err != nil {
			return apperrors.NewDatabaseError("purge: submissions", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM moderation_records WHERE applicant_id = $1`, int64(id)); err != nil {
			return apperrors.NewDatabaseError("purge: moderation records", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM applicants WHERE id = $1`, int64(id))
		if err != nil {
			return apperrors.NewDatabaseError("purge: applicant", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return apperrors.NewNotFoundError("applicant", id)
		}
		return nil
	})
}

func (p *Postgres) GetSubmission(ctx context.Context, id uint64) (*models.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sub := &models.Submission{ApplicantID: id}
	a := &sub.Answers
	err := p.db.QueryRowContext(ctx, `
		SELECT display_name, name, tenure, preference, motivation, feedback, confidentiality, created_at
		FROM submissions WHERE applicant_id = $1`, int64(id)).
		Scan(&sub.DisplayName, &a.Name, &a.Tenure, &a.Preference, &a.Motivation, &a.Feedback, &a.Confidentiality, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("submission", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get submission", err)
	}
	return sub, nil
}

func (p *Postgres) ListPending(ctx context.Context) ([]uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
		SELECT a.id
		FROM applicants a
		JOIN submissions s ON s.applicant_id = a.id
		WHERE a.status = 'pending'
		ORDER BY s.created_at ASC`)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list pending", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewDatabaseError("list pending: scan", err)
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list pending: rows", err)
	}
	return ids, nil
}

func (p *Postgres) ListDecisions(ctx context.Context, id uint64) ([]models.ModerationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, moderator_id, decision, decided_at
		FROM moderation_records
		WHERE applicant_id = $1
		ORDER BY decided_at ASC, id ASC`, int64(id))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list decisions", err)
	}
	defer rows.Close()

	var out []models.ModerationRecord
	for rows.Next() {
		rec := models.ModerationRecord{ApplicantID: id}
		var decision string
		if err := rows.Scan(&rec.ID, &rec.ModeratorID, &decision, &rec.DecidedAt); err != nil {
			return nil, apperrors.NewDatabaseError("list decisions: scan", err)
		}
		rec.Decision = models.Decision(decision)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list decisions: rows", err)
	}
	return out, nil
}

// inApplicantTx runs fn in a transaction serialised on the applicant id and
// bounded by the configured query timeout.
func (p *Postgres) inApplicantTx(ctx context.Context, id uint64, op string, fn func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError(op+": begin", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(id)); err != nil {
		_ = tx.Rollback()
		return apperrors.NewDatabaseError(op+": lock", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			p.logger.Warn("rollback failed", map[string]interface{}{
				"operation":   op,
				"applicantId": id,
				"error":       rbErr,
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError(op+": commit", err)
	}
	return nil
}
