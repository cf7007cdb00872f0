package adminpanel

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/models"
	"applicant-gate/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const adminID int64 = 7

type fakeSessions struct{ dropped []uint64 }

func (f *fakeSessions) DropSession(id uint64) bool {
	f.dropped = append(f.dropped, id)
	return true
}

type fakeClaims struct {
	released []uint64
	err      error
}

func (f *fakeClaims) ReleaseClaim(_ context.Context, id uint64) error {
	f.released = append(f.released, id)
	return f.err
}

func seed(t *testing.T, st *store.Memory, approved, rejected int) {
	t.Helper()
	ctx := context.Background()
	id := uint64(100)
	for i := 0; i < approved+rejected; i++ {
		id++
		require.NoError(t, st.UpsertApplicant(ctx, id, "user"))
		decision := models.DecisionApproved
		if i >= approved {
			decision = models.DecisionRejected
		}
		_, err := st.RecordDecision(ctx, id, adminID, decision)
		require.NoError(t, err)
	}
}

func newTestHandler(t *testing.T, pageSize int) (*Handler, *store.Memory, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	st := store.NewMemory()
	cfg := &Config{AdminChatID: adminID, PageSize: pageSize, StatsCacheTTL: time.Minute}
	return NewHandler(cfg, st, NewStatsCache(rdb, cfg.StatsCacheTTL, logger.NewTestLogger(t)), &fakeSessions{}, &fakeClaims{}, logger.NewTestLogger(t)), st, mr
}

// ==========================
// Tests
// ==========================

func TestStats_CountsAndCaches(t *testing.T) {
	h, st, mr := newTestHandler(t, 10)
	ctx := context.Background()
	seed(t, st, 3, 2)

	stats, err := h.Stats(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Approved)
	assert.Equal(t, 2, stats.Rejected)
	assert.False(t, stats.Cached)
	assert.True(t, mr.Exists(StatsCacheKey))

	require.NoError(t, st.UpsertApplicant(ctx, 500, "late"))
	_, err = st.RecordDecision(ctx, 500, adminID, models.DecisionApproved)
	require.NoError(t, err)

	stats, err = h.Stats(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, stats.Cached)
	assert.Equal(t, 3, stats.Approved)

	h.InvalidateStats(ctx)
	assert.False(t, mr.Exists(StatsCacheKey))
}

func TestStats_CacheExpires(t *testing.T) {
	h, st, mr := newTestHandler(t, 10)
	ctx := context.Background()

	_, err := h.Stats(ctx, adminID)
	require.NoError(t, err)

	seed(t, st, 1, 0)
	mr.FastForward(2 * time.Minute)

	stats, err := h.Stats(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Approved)
}

func TestStats_RedisErrorFallsBackToStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	st := store.NewMemory()
	seed(t, st, 1, 1)
	log := logger.NewTestLogger(t)
	h := NewHandler(&Config{AdminChatID: adminID}, st, NewStatsCache(db, time.Minute, log), nil, nil, log)

	mock.ExpectGet(StatsCacheKey).SetErr(errors.New("connection refused"))
	mock.ExpectSet(StatsCacheKey, []byte(`{"approved":1,"rejected":1}`), time.Minute).SetErr(errors.New("connection refused"))

	stats, err := h.Stats(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Approved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_WithoutRedis(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, 2, 0)
	h := NewHandler(&Config{AdminChatID: adminID}, st, NewStatsCache(nil, time.Minute, logger.NewNoOpLogger()), nil, nil, logger.NewNoOpLogger())

	stats, err := h.Stats(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 10, h.config.PageSize)
}

func TestEveryOperationRequiresModerator(t *testing.T) {
	h, _, _ := newTestHandler(t, 10)
	ctx := context.Background()

	_, err := h.Stats(ctx, 99)
	assert.True(t, apperrors.IsForbidden(err))
	_, err = h.ListApproved(ctx, 99, 0)
	assert.True(t, apperrors.IsForbidden(err))
	assert.True(t, apperrors.IsForbidden(h.Purge(ctx, 99, 1)))
	assert.True(t, apperrors.IsForbidden(h.Authorize(0)))
	assert.NoError(t, h.Authorize(adminID))
}

func TestListApproved_Pagination(t *testing.T) {
	h, st, _ := newTestHandler(t, 2)
	ctx := context.Background()
	seed(t, st, 5, 1)

	first, err := h.ListApproved(ctx, adminID, 0)
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.True(t, first.HasNext)
	// Most recent approval first.
	assert.Equal(t, uint64(105), first.Items[0].ID)

	last, err := h.ListApproved(ctx, adminID, 2)
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.HasNext)

	neg, err := h.ListApproved(ctx, adminID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, neg.Page)
}

func TestPurge(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	st := store.NewMemory()
	sessions := &fakeSessions{}
	claims := &fakeClaims{err: errors.New("redis down")}
	log := logger.NewTestLogger(t)
	h := NewHandler(&Config{AdminChatID: adminID}, st, NewStatsCache(rdb, time.Minute, log), sessions, claims, log)
	ctx := context.Background()

	seed(t, st, 1, 0)
	_, err := h.Stats(ctx, adminID)
	require.NoError(t, err)

	require.NoError(t, h.Purge(ctx, adminID, 101))

	_, ok, _ := st.GetStatus(ctx, 101)
	assert.False(t, ok)
	assert.Equal(t, []uint64{101}, sessions.dropped)
	assert.Equal(t, []uint64{101}, claims.released)
	assert.False(t, mr.Exists(StatsCacheKey))

	err = h.Purge(ctx, adminID, 101)
	assert.True(t, apperrors.IsNotFound(err))
}
