package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgres(db, time.Second, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func validSubmission(id uint64) models.Submission {
	return models.Submission{
		ApplicantID: id,
		DisplayName: "alice",
		Answers: models.Answers{
			Name:            "Alice",
			Tenure:          "two years",
			Preference:      "sci-fi",
			Motivation:      "friends are there",
			Feedback:        models.ChoiceYes,
			Confidentiality: models.ChoiceYes,
		},
	}
}

func expectLock(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

// ==========================
// Applicants
// ==========================

func TestPostgres_UpsertApplicant(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO applicants .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(int64(42), "alice", "pending", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.UpsertApplicant(context.Background(), 42, "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertApplicant_DatabaseError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO applicants`).WillReturnError(errors.New("connection reset"))

	err := s.UpsertApplicant(context.Background(), 42, "alice")
	assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestPostgres_GetStatus(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT status FROM applicants WHERE id = \$1`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))

		status, ok, err := s.GetStatus(context.Background(), 42)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, models.StatusApproved, status)
	})

	t.Run("unknown", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT status FROM applicants`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))

		status, ok, err := s.GetStatus(context.Background(), 7)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, status)
	})
}

func TestPostgres_HasLiveSubmission(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM submissions WHERE applicant_id = \$1\)`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	live, err := s.HasLiveSubmission(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, live)
}

// ==========================
// Submissions
// ==========================

func TestPostgres_CommitSubmission_Success(t *testing.T) {
	s, mock := newMockStore(t)

	expectLock(mock, 42)
	mock.ExpectQuery(`SELECT status FROM applicants WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM submissions`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`UPDATE applicants SET display_name`).
		WithArgs(int64(42), "alice", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs(int64(42), "alice", "Alice", "two years", "sci-fi", "friends are there", "yes", "yes", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, s.CommitSubmission(context.Background(), validSubmission(42)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CommitSubmission_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mockFn   func(mock sqlmock.Sqlmock)
		wantCode apperrors.ErrorCode
	}{
		{
			name: "unknown applicant",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT status FROM applicants`).
					WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			wantCode: apperrors.ErrCodeNotFound,
		},
		{
			name: "live submission exists",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT status FROM applicants`).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
				mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM submissions`).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
				mock.ExpectRollback()
			},
			wantCode: apperrors.ErrCodeConflict,
		},
		{
			name: "applicant already decided",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT status FROM applicants`).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
				mock.ExpectRollback()
			},
			wantCode: apperrors.ErrCodeConflict,
		},
		{
			name: "unique violation on insert",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT status FROM applicants`).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
				mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM submissions`).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectExec(`UPDATE applicants SET display_name`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO submissions`).
					WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
				mock.ExpectRollback()
			},
			wantCode: apperrors.ErrCodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			expectLock(mock, 42)
			tt.mockFn(mock)

			err := s.CommitSubmission(context.Background(), validSubmission(42))
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_CommitSubmission_InvalidAnswersNeverTouchDB(t *testing.T) {
	s, mock := newMockStore(t)

	sub := validSubmission(42)
	sub.Answers.Feedback = "maybe"

	err := s.CommitSubmission(context.Background(), sub)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSubmission(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT display_name, name, tenure, preference, motivation, feedback, confidentiality, created_at`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"display_name", "name", "tenure", "preference", "motivation", "feedback", "confidentiality", "created_at",
		}).AddRow("alice", "Alice", "two years", "sci-fi", "friends", "no", "yes", fixedNow))

	sub, err := s.GetSubmission(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), sub.ApplicantID)
	assert.Equal(t, "Alice", sub.Answers.Name)
	assert.Equal(t, models.ChoiceNo, sub.Answers.Feedback)
	assert.Equal(t, fixedNow, sub.CreatedAt)

	mock.ExpectQuery(`SELECT display_name`).WithArgs(int64(43)).
		WillReturnRows(sqlmock.NewRows([]string{"display_name"}))
	_, err = s.GetSubmission(context.Background(), 43)
	assert.True(t, apperrors.IsNotFound(err))
}

// ==========================
// Decisions
// ==========================

func TestPostgres_RecordDecision_Success(t *testing.T) {
	s, mock := newMockStore(t)

	expectLock(mock, 42)
	mock.ExpectQuery(`SELECT status FROM applicants WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec(`UPDATE applicants SET status`).
		WithArgs(int64(42), "approved", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO moderation_records .* RETURNING id`).
		WithArgs(int64(42), int64(7), "approved", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`DELETE FROM submissions WHERE applicant_id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := s.RecordDecision(context.Background(), 42, 7, models.DecisionApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(11), rec.ID)
	assert.Equal(t, uint64(42), rec.ApplicantID)
	assert.Equal(t, int64(7), rec.ModeratorID)
	assert.Equal(t, models.DecisionApproved, rec.Decision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordDecision_UnknownApplicant(t *testing.T) {
	s, mock := newMockStore(t)

	expectLock(mock, 99)
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	rec, err := s.RecordDecision(context.Background(), 99, 7, models.DecisionRejected)
	assert.Nil(t, rec)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordDecision_RejectsUnknownDecision(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.RecordDecision(context.Background(), 42, 7, models.Decision("maybe"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordDecision_LockFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnError(errors.New("canceling statement due to lock timeout"))
	mock.ExpectRollback()

	_, err := s.RecordDecision(context.Background(), 42, 7, models.DecisionApproved)
	assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListDecisions(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM moderation_records`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "moderator_id", "decision", "decided_at"}).
			AddRow(int64(1), int64(7), "rejected", fixedNow))

	recs, err := s.ListDecisions(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.DecisionRejected, recs[0].Decision)
	assert.Equal(t, uint64(42), recs[0].ApplicantID)
}

// ==========================
// Admin queries
// ==========================

func TestPostgres_ListApproved(t *testing.T) {
	s, mock := newMockStore(t)

	later := fixedNow.Add(time.Hour)
	mock.ExpectQuery(`ORDER BY approved_at DESC`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "approved_at"}).
			AddRow(int64(43), "bob", later).
			AddRow(int64(42), "alice", fixedNow))

	rows, err := s.ListApproved(context.Background(), -5, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(43), rows[0].ID)
	assert.Equal(t, "alice", rows[1].DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountByStatus(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM applicants WHERE status = \$1`).
		WithArgs("rejected").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.CountByStatus(context.Background(), models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = s.CountByStatus(context.Background(), models.Status("archived"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPostgres_ListPending(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`WHERE a.status = 'pending'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)).AddRow(int64(9)))

	ids, err := s.ListPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 9}, ids)
}

func TestPostgres_PurgeApplicant(t *testing.T) {
	t.Run("deletes everything", func(t *testing.T) {
		s, mock := newMockStore(t)
		expectLock(mock, 42)
		mock.ExpectExec(`DELETE FROM submissions`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM moderation_records`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM applicants`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, s.PurgeApplicant(context.Background(), 42))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown applicant", func(t *testing.T) {
		s, mock := newMockStore(t)
		expectLock(mock, 42)
		mock.ExpectExec(`DELETE FROM submissions`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM moderation_records`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM applicants`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.True(t, apperrors.IsNotFound(s.PurgeApplicant(context.Background(), 42)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
