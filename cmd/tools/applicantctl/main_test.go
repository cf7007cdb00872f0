package main

import (
	"context"
	"testing"

	adminpanel "applicant-gate/internal/workers/admin/admin-panel"
	moderationworkflow "applicant-gate/internal/workers/moderation/moderation-workflow"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearPurged_DropsClaimAndStats(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mr.Set(moderationworkflow.ClaimKey(42), "7")
	mr.Set(moderationworkflow.ClaimKey(43), "7")
	mr.Set(adminpanel.StatsCacheKey, `{"approved":1}`)

	require.NoError(t, clearPurged(context.Background(), rdb, 42))

	assert.False(t, mr.Exists(moderationworkflow.ClaimKey(42)))
	assert.True(t, mr.Exists(moderationworkflow.ClaimKey(43)))
	assert.False(t, mr.Exists(adminpanel.StatsCacheKey))
}

func TestClearPurged_ReportsReleaseFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	err := clearPurged(context.Background(), rdb, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release claim 42")
}
