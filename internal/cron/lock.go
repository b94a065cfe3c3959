package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// runLockKeyFormat namespaces the worker lock per environment so a staging
// worker never blocks production cleanup.
const runLockKeyFormat = "garage:cron-worker:lock:%s"

// defaultRunLockTTL is deliberately shorter than the daily cleanup cadence: a
// worker that dies without releasing must not block the next day's run. The
// cleanup jobs tolerate an overlapping cycle (discard and purge are both
// re-runnable), so expiring early is the safer failure mode.
const defaultRunLockTTL = 23 * time.Hour

// Lock coordinates exclusive cleanup cycles across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RunLock is the redis-backed Lock used by the cron worker. One lock exists
// per environment; whichever replica wins SETNX runs the cycle.
type RunLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

// NewRunLock builds the worker lock for the given environment. An empty env
// maps to "local", matching the config default. A non-positive ttl selects
// the daily-cadence default.
func NewRunLock(store lockStore, env string, ttl time.Duration) (*RunLock, error) {
	if store == nil {
		return nil, errors.New("lock store required")
	}
	if env == "" {
		env = "local"
	}
	if ttl <= 0 {
		ttl = defaultRunLockTTL
	}
	return &RunLock{
		store: store,
		key:   fmt.Sprintf(runLockKeyFormat, env),
		ttl:   ttl,
	}, nil
}

// Acquire attempts to claim this environment's cycle. The stored token
// identifies this replica so Release cannot free a lock that has expired and
// been re-acquired elsewhere.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim cron lock: %w", err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release frees the lock if this replica still owns it. A lock that expired
// mid-cycle, or now belongs to another replica, is left alone.
func (l *RunLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	current, err := l.store.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		l.token = ""
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cron lock: %w", err)
	}
	if current != l.token {
		l.token = ""
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release cron lock: %w", err)
	}
	l.token = ""
	return nil
}
