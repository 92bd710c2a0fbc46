package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	stateProcessing = "processing"
	stateDone       = "done"
)

// Both scripts act only while KEYS[1] still holds the caller's claim value.
var (
	completeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3]) and 1 or 0
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisStore keeps claims as keys with a TTL. A processing claim expires
// after the lease, a completed one after the retention period.
type RedisStore struct {
	client    *redis.Client
	lease     time.Duration
	retention time.Duration
}

func NewRedisStore(client *redis.Client, lease, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, lease: lease, retention: retention}
}

func (s *RedisStore) Claim(ctx context.Context, eventID, _ string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, eventKey(eventID), claimValue(token), s.lease).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis claim failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (s *RedisStore) Complete(ctx context.Context, eventID, token string) error {
	err := completeScript.Run(ctx, s.client, []string{eventKey(eventID)},
		claimValue(token), stateDone, s.retention.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis complete failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, eventID, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{eventKey(eventID)}, claimValue(token)).Err(); err != nil {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}

func eventKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}

func claimValue(token string) string {
	return stateProcessing + ":" + token
}
