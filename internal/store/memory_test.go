package store

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_UpsertTwiceKeepsLatestName(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertApplicant(ctx, 42, "alice"))
	require.NoError(t, s.UpsertApplicant(ctx, 42, "alice_renamed"))

	assert.Len(t, s.applicants, 1)
	assert.Equal(t, "alice_renamed", s.applicants[42].DisplayName)

	status, ok, err := s.GetStatus(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StatusPending, status)
}

func TestMemory_CommitThenDecideDropsSubmission(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.UpsertApplicant(ctx, 42, "alice"))
	require.NoError(t, s.CommitSubmission(ctx, validSubmission(42)))

	live, _ := s.HasLiveSubmission(ctx, 42)
	assert.True(t, live)

	rec, err := s.RecordDecision(ctx, 42, 7, models.DecisionApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ModeratorID)

	live, _ = s.HasLiveSubmission(ctx, 42)
	assert.False(t, live)

	recs, _ := s.ListDecisions(ctx, 42)
	assert.Len(t, recs, 1)

	status, _, _ := s.GetStatus(ctx, 42)
	assert.Equal(t, models.StatusApproved, status)

	_, err = s.GetSubmission(ctx, 42)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemory_CommitSubmission_Rejections(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	err := s.CommitSubmission(ctx, validSubmission(1))
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, s.UpsertApplicant(ctx, 1, "a"))
	require.NoError(t, s.CommitSubmission(ctx, validSubmission(1)))
	assert.True(t, apperrors.IsConflict(s.CommitSubmission(ctx, validSubmission(1))))

	bad := validSubmission(1)
	bad.Answers.Name = "   "
	assert.ErrorIs(t, s.CommitSubmission(ctx, bad), apperrors.ErrValidation)
}

func TestMemory_CommitSubmission_DecidedApplicantConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.UpsertApplicant(ctx, 7, "a"))
	_, err := s.RecordDecision(ctx, 7, 1000, models.DecisionApproved)
	require.NoError(t, err)

	assert.True(t, apperrors.IsConflict(s.CommitSubmission(ctx, validSubmission(7))))
	live, err := s.HasLiveSubmission(ctx, 7)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestMemory_ConcurrentCommitsYieldOneSubmission(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.UpsertApplicant(ctx, 42, "alice"))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CommitSubmission(ctx, validSubmission(42))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperrors.IsConflict(err) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 19, conflicts)
}

func TestMemory_RecordDecision_UnknownApplicant(t *testing.T) {
	_, err := NewMemory().RecordDecision(context.Background(), 5, 7, models.DecisionRejected)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemory_ListApprovedOrdersByLatestApproval(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	for _, id := range []uint64{1, 2, 3, 4} {
		require.NoError(t, s.UpsertApplicant(ctx, id, "user"))
	}
	_, _ = s.RecordDecision(ctx, 2, 7, models.DecisionApproved)
	_, _ = s.RecordDecision(ctx, 1, 7, models.DecisionApproved)
	_, _ = s.RecordDecision(ctx, 4, 7, models.DecisionRejected)
	_, _ = s.RecordDecision(ctx, 3, 7, models.DecisionApproved)

	rows, err := s.ListApproved(ctx, 0, 10)
	require.NoError(t, err)
	ids := make([]uint64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	assert.Equal(t, []uint64{3, 1, 2}, ids)

	page, err := s.ListApproved(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(2), page[0].ID)

	empty, err := s.ListApproved(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)

	approved, _ := s.CountByStatus(ctx, models.StatusApproved)
	rejected, _ := s.CountByStatus(ctx, models.StatusRejected)
	assert.Equal(t, 3, approved)
	assert.Equal(t, 1, rejected)
}

func TestMemory_ListPendingOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, id := range []uint64{10, 11, 12} {
		require.NoError(t, s.UpsertApplicant(ctx, id, "u"))
	}
	require.NoError(t, s.CommitSubmission(ctx, validSubmission(12)))
	require.NoError(t, s.CommitSubmission(ctx, validSubmission(10)))

	ids, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{12, 10}, ids)
}

func TestMemory_PurgeApplicant(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.UpsertApplicant(ctx, 42, "alice"))
	require.NoError(t, s.UpsertApplicant(ctx, 43, "bob"))
	_, _ = s.RecordDecision(ctx, 42, 7, models.DecisionRejected)
	_, _ = s.RecordDecision(ctx, 43, 7, models.DecisionApproved)

	require.NoError(t, s.PurgeApplicant(ctx, 42))

	_, ok, _ := s.GetStatus(ctx, 42)
	assert.False(t, ok)
	recs, _ := s.ListDecisions(ctx, 42)
	assert.Empty(t, recs)
	recs, _ = s.ListDecisions(ctx, 43)
	assert.Len(t, recs, 1)

	assert.True(t, apperrors.IsNotFound(s.PurgeApplicant(ctx, 42)))
}
