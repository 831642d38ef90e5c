package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 15 * time.Minute

// ErrLockLost reports that another worker took the lease while a cycle was running.
var ErrLockLost = errors.New("cron lock lost")

// Lock coordinates exclusive cron runs across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Extend(ctx context.Context) error
	Release(ctx context.Context) error
	TTL() time.Duration
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ExtendOwned(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseOwned(ctx context.Context, key, owner string) (bool, error)
}

// RedisLock is a lease keyed per environment and loop. The owner token makes
// release and renewal safe after the lease has expired and been retaken.
type RedisLock struct {
	store leaseStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	owner string
}

func NewRedisLock(store leaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) TTL() time.Duration { return l.ttl }

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.mu.Lock()
		l.owner = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Extend renews the lease for another TTL and returns ErrLockLost when the token no longer matches.
func (l *RedisLock) Extend(ctx context.Context) error {
	owner := l.currentOwner()
	if owner == "" {
		return ErrLockLost
	}
	ok, err := l.store.ExtendOwned(ctx, l.key, owner, l.ttl)
	if err != nil {
		return fmt.Errorf("extend %s: %w", l.key, err)
	}
	if !ok {
		l.clearOwner()
		return ErrLockLost
	}
	return nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	owner := l.currentOwner()
	if owner == "" {
		return nil
	}
	defer l.clearOwner()
	if _, err := l.store.ReleaseOwned(ctx, l.key, owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLock) currentOwner() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

func (l *RedisLock) clearOwner() {
	l.mu.Lock()
	l.owner = ""
	l.mu.Unlock()
}
