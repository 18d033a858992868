package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NudgeRepository enforces the per-request reminder cooldown with a Redis
// SET NX lock. The key lives exactly as long as the cooldown window, so
// expiry and eligibility are the same thing.
type NudgeRepository struct {
	client *redis.Client
}

// NewNudgeRepository constructs the repository.
func NewNudgeRepository(client *redis.Client) *NudgeRepository {
	return &NudgeRepository{client: client}
}

func nudgeKey(requestID string) string {
	return "nudge:" + requestID
}

// Acquire attempts to claim the cooldown slot for a request. Returns true
// when the nudge may proceed, false while a previous nudge is still cooling
// down. When Redis is unavailable the nudge is allowed through; a duplicate
// reminder beats a silently dropped one.
func (r *NudgeRepository) Acquire(ctx context.Context, requestID string, cooldown time.Duration) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, nudgeKey(requestID), time.Now().UTC().Format(time.RFC3339), cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx nudge %s: %w", requestID, err)
	}
	return ok, nil
}

// Remaining reports how long until the request may be nudged again. Zero
// means eligible now.
func (r *NudgeRepository) Remaining(ctx context.Context, requestID string) (time.Duration, error) {
	if r.client == nil {
		return 0, nil
	}
	ttl, err := r.client.TTL(ctx, nudgeKey(requestID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl nudge %s: %w", requestID, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
