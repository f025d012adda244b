package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a key stays held past the wait bound.
var ErrLockTimeout = errors.New("lock wait timed out")

const lockPollInterval = 25 * time.Millisecond

// releaseScript deletes the key only if it still holds our token, so an expired
// lock re-acquired by someone else is never released by the previous owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// UserLocker hands out per-key mutual exclusion. With a Redis client the lock is
// shared across instances (SET NX PX with a random token); without one it is an
// in-process keyed lock.
type UserLocker struct {
	rc   *redis.Client
	ttl  time.Duration
	wait time.Duration

	mu    sync.Mutex
	local map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewUserLocker builds a locker. ttl bounds how long a crashed holder can block a
// key; wait bounds how long Lock blocks before giving up.
func NewUserLocker(rc *redis.Client, ttl, wait time.Duration) *UserLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &UserLocker{rc: rc, ttl: ttl, wait: wait, local: map[string]*localLock{}}
}

// Lock blocks until key is acquired, the wait bound passes or ctx is done.
func (l *UserLocker) Lock(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	if l.rc != nil {
		return l.lockRedis(ctx, "lock:"+key)
	}
	return l.lockLocal(ctx, key)
}

func (l *UserLocker) lockRedis(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.rc.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, lockWaitErr(ctx)
			}
			return nil, err
		}
		if ok {
			return func() {
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(rctx, l.rc, []string{key}, token).Err(); err != nil {
					Sugar.Warnf("release lock %s failed: %v", key, err)
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, lockWaitErr(ctx)
		case <-ticker.C:
		}
	}
}

func (l *UserLocker) lockLocal(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ll, ok := l.local[key]
	if !ok {
		ll = &localLock{ch: make(chan struct{}, 1)}
		l.local[key] = ll
	}
	ll.refs++
	l.mu.Unlock()

	select {
	case ll.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-ll.ch
				l.release(key, ll)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, ll)
		return nil, lockWaitErr(ctx)
	}
}

func (l *UserLocker) release(key string, ll *localLock) {
	l.mu.Lock()
	ll.refs--
	if ll.refs == 0 {
		delete(l.local, key)
	}
	l.mu.Unlock()
}

func lockWaitErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return ErrLockTimeout
}
