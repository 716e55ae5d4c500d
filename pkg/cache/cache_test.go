package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewMemoryWithClock(clock)
	ctx := context.Background()

	if err := c.Set(ctx, "slug:acme", []byte("v1"), 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, ok, err := c.Get(ctx, "slug:acme")
	if err != nil || !ok || string(val) != "v1" {
		t.Fatalf("get = %q, %v, %v; want v1, true, nil", val, ok, err)
	}

	now = now.Add(5*time.Minute - time.Second)
	if _, ok, _ := c.Get(ctx, "slug:acme"); !ok {
		t.Fatal("entry expired before TTL elapsed")
	}

	now = now.Add(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "slug:acme"); ok {
		t.Fatal("entry still live after TTL elapsed")
	}
}

func TestMemoryDelete(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "domain:shop.example.com", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Delete(ctx, "domain:shop.example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "domain:shop.example.com"); ok {
		t.Fatal("entry survived delete")
	}
	if err := c.Delete(ctx, "domain:absent"); err != nil {
		t.Fatalf("delete absent key: %v", err)
	}
}

func TestMemoryConcurrent(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				_ = c.Set(ctx, "k", []byte("v"), time.Minute)
				_, _, _ = c.Get(ctx, "k")
				_ = c.Delete(ctx, "k")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}

func newRedisCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, "tenants"), mr
}

func TestRedisTTL(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "slug:acme", []byte("v1"), 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := c.Get(ctx, "slug:acme")
	if err != nil || !ok || string(val) != "v1" {
		t.Fatalf("get = %q, %v, %v; want v1, true, nil", val, ok, err)
	}

	mr.FastForward(6 * time.Minute)
	if _, ok, _ := c.Get(ctx, "slug:acme"); ok {
		t.Fatal("entry still live after TTL elapsed")
	}
}

func TestRedisDelete(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "id:42", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Delete(ctx, "id:42"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "id:42"); ok {
		t.Fatal("entry survived delete")
	}
}
