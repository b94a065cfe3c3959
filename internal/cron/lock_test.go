package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeLockStore struct {
	data map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{data: map[string]string{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestRunLockKeyIsScopedPerEnvironment(t *testing.T) {
	store := newFakeLockStore()
	ctx := context.Background()

	prod, err := NewRunLock(store, "prod", 0)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	local, err := NewRunLock(store, "", 0)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}

	if won, err := prod.Acquire(ctx); err != nil || !won {
		t.Fatalf("prod acquire: won=%v err=%v", won, err)
	}
	// A different environment must not contend on the same key.
	if won, err := local.Acquire(ctx); err != nil || !won {
		t.Fatalf("local acquire: won=%v err=%v", won, err)
	}
	if _, ok := store.data["garage:cron-worker:lock:prod"]; !ok {
		t.Fatal("expected prod-scoped lock key")
	}
	if _, ok := store.data["garage:cron-worker:lock:local"]; !ok {
		t.Fatal("expected local fallback lock key")
	}
}

func TestRunLockSecondReplicaLoses(t *testing.T) {
	store := newFakeLockStore()
	ctx := context.Background()

	first, _ := NewRunLock(store, "prod", 0)
	second, _ := NewRunLock(store, "prod", 0)

	if won, err := first.Acquire(ctx); err != nil || !won {
		t.Fatalf("first acquire: won=%v err=%v", won, err)
	}
	if won, err := second.Acquire(ctx); err != nil || won {
		t.Fatalf("second replica must lose: won=%v err=%v", won, err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if won, err := second.Acquire(ctx); err != nil || !won {
		t.Fatalf("acquire after release: won=%v err=%v", won, err)
	}
}

func TestRunLockReleaseLeavesForeignToken(t *testing.T) {
	store := newFakeLockStore()
	ctx := context.Background()

	lock, _ := NewRunLock(store, "prod", 0)
	if won, _ := lock.Acquire(ctx); !won {
		t.Fatal("acquire failed")
	}

	// The lock expired mid-cycle and another replica claimed it.
	store.data["garage:cron-worker:lock:prod"] = "someone-else"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.data["garage:cron-worker:lock:prod"] != "someone-else" {
		t.Fatal("release must not free another replica's lock")
	}
}

func TestRunLockReleaseWithoutAcquireIsNoop(t *testing.T) {
	store := newFakeLockStore()
	lock, _ := NewRunLock(store, "prod", 0)
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release without acquire: %v", err)
	}
}
