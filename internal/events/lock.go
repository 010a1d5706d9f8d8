package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld means another process is running the pipeline for this user.
var ErrLockHeld = errors.New("another run holds the lock")

// releaseScript deletes the lock only when it still carries our token, so
// an expired lock taken over by someone else is never stolen back.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RunLock is a cross-process advisory lock, one pipeline run per user at a
// time even with several daemons pointed at shared storage. The TTL frees
// the lock when a holder dies without releasing. Without a client every
// call succeeds, leaving in-process serialization as the only guard.
type RunLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRunLock returns a lock for user. A non-positive ttl defaults to 30
// minutes, comfortably above a slow enriching run.
func NewRunLock(client *redis.Client, user string, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RunLock{
		client: client,
		key:    "jobscout:run-lock:" + user,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire takes the lock or returns ErrLockHeld.
func (l *RunLock) Acquire(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release drops the lock if this process still holds it.
func (l *RunLock) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
