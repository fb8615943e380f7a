package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// runLockTTL bounds how long a crashed run can hold the daily lock
const runLockTTL = 2 * time.Hour

// RunLocker guards against overlapping orchestrator runs across process
// instances. The DB "processed" markers already make overlap safe; the
// lock just avoids wasted duplicate work.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type redisRunLocker struct {
	client *redis.Client
}

// NewRedisRunLocker creates a locker backed by a single Redis key per run
// date. Returns nil if no client is configured, which disables locking.
func NewRedisRunLocker(client *redis.Client) RunLocker {
	if client == nil {
		return nil
	}
	return &redisRunLocker{client: client}
}

func (l *redisRunLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}

func (l *redisRunLocker) Unlock(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

func runLockKey(date time.Time) string {
	return fmt.Sprintf("matchrun:lock:%s", date.Format("2006-01-02"))
}
