package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the lock.
var ErrNotAcquired = errors.New("lock is held by another process")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out expiring single-holder locks so only one API
// instance runs a given background job at a time.
type RedisLocker struct {
	client   redis.Cmdable
	prefix   string
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable, prefix string) *RedisLocker {
	return &RedisLocker{
		client:   client,
		prefix:   prefix,
		newToken: func() string { return uuid.NewString() },
	}
}

// Lock is a held lock. Release is safe to call once the TTL has passed.
type Lock struct {
	locker *RedisLocker
	key    string
	token  string
}

// Acquire takes the lock named name for ttl or returns ErrNotAcquired.
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := l.prefix + name
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &Lock{locker: l, key: key, token: token}, nil
}

// Release deletes the lock only if it is still owned by this holder.
func (lk *Lock) Release(ctx context.Context) error {
	_, err := releaseScript.Run(ctx, lk.locker.client, []string{lk.key}, lk.token).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lk.key, err)
	}
	return nil
}
