package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memRedis struct {
	data map[string]string
}

func (m *memRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockExcludesSecondOwner(t *testing.T) {
	store := &memRedis{data: map[string]string{}}
	first, err := NewRedisLock(store, "mpos:lock:sweep", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "mpos:lock:sweep", time.Minute)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second owner must not acquire a held lock")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, held := store.data["mpos:lock:sweep"]; !held {
		t.Fatal("non-owner release must not drop the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("lock should be free after owner release")
	}
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	store := &memRedis{data: map[string]string{}}
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("acquire failed")
	}
	delete(store.data, "k")
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release of expired lock: %v", err)
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected client error")
	}
	if _, err := NewRedisLock(&memRedis{}, "", 0); err == nil {
		t.Fatal("expected key error")
	}
}

func TestLocalLock(t *testing.T) {
	var lock LocalLock
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := lock.Acquire(ctx); ok {
		t.Fatal("second acquire should fail while held")
	}
	_ = lock.Release(ctx)
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("acquire after release should succeed")
	}
}
