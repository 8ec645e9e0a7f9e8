package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when a lock is still held by someone else
// after the caller stopped waiting.
var ErrNotObtained = errors.New("could not obtain lock")

// Release frees a lock obtained from a Locker
type Release func(ctx context.Context) error

// Locker serializes work on a key across requests
type Locker interface {
	Obtain(ctx context.Context, key string) (Release, error)
}

func ProductKey(id uuid.UUID) string {
	return fmt.Sprintf("lock:product:%s", id)
}

func ReconciliationKey(id uuid.UUID) string {
	return fmt.Sprintf("lock:reconciliation:%s", id)
}

// Redis holds locks in redis so that every replica sees them
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedis wraps rdb. ttl bounds how long a crashed holder keeps the lock.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: redislock.New(rdb), ttl: ttl}
}

// Obtain retries until the lock is free or ctx is done
func (r *Redis) Obtain(ctx context.Context, key string) (Release, error) {
	l, err := r.client.Obtain(ctx, key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		if err := l.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

// Local keeps locks in process memory. Used when no redis is configured.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) Obtain(ctx context.Context, key string) (Release, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func(context.Context) error {
			once.Do(func() { <-ch })
			return nil
		}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrNotObtained, key, ctx.Err())
	}
}

var (
	_ Locker = (*Redis)(nil)
	_ Locker = (*Local)(nil)
)
