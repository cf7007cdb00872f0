// internal/workers/moderation/moderation-workflow/claims.go
package moderationworkflow

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const claimKeyPrefix = "moderation:claim:"

func ClaimKey(applicantID uint64) string {
	return claimKeyPrefix + strconv.FormatUint(applicantID, 10)
}

// Claims makes a review card control single-use. The first Claim for an
// applicant wins until Release or the TTL runs out.
type Claims interface {
	Claim(ctx context.Context, applicantID uint64, moderatorID int64) (bool, error)
	Release(ctx context.Context, applicantID uint64) error
}

type RedisClaims struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClaims(client *redis.Client, ttl time.Duration) *RedisClaims {
	return &RedisClaims{client: client, ttl: ttl}
}

func (c *RedisClaims) Claim(ctx context.Context, applicantID uint64, moderatorID int64) (bool, error) {
	ok, err := c.client.SetNX(ctx, ClaimKey(applicantID), moderatorID, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %d: %w", applicantID, err)
	}
	return ok, nil
}

func (c *RedisClaims) Release(ctx context.Context, applicantID uint64) error {
	if err := c.client.Del(ctx, ClaimKey(applicantID)).Err(); err != nil {
		return fmt.Errorf("release claim %d: %w", applicantID, err)
	}
	return nil
}

// LocalClaims is the single-process fallback used when no Redis is configured.
type LocalClaims struct {
	mu      sync.Mutex
	ttl     time.Duration
	claimed map[uint64]time.Time
	now     func() time.Time
}

func NewLocalClaims(ttl time.Duration) *LocalClaims {
	return &LocalClaims{
		ttl:     ttl,
		claimed: make(map[uint64]time.Time),
		now:     time.Now,
	}
}

func (c *LocalClaims) Claim(_ context.Context, applicantID uint64, _ int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if at, ok := c.claimed[applicantID]; ok && (c.ttl <= 0 || now.Sub(at) < c.ttl) {
		return false, nil
	}
	c.claimed[applicantID] = now
	return true, nil
}

func (c *LocalClaims) Release(_ context.Context, applicantID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claimed, applicantID)
	return nil
}
