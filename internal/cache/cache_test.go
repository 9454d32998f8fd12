package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "test:", time.Minute), mr
}

func TestGetSetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}

	if err := c.Set(ctx, "p:1", payload{ID: 1, Name: "algebra"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got payload
	if err := c.Get(ctx, "p:1", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != 1 || got.Name != "algebra" {
		t.Errorf("got %+v", got)
	}
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	var dest map[string]string
	if err := c.Get(context.Background(), "absent", &dest); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(absent) = %v, want ErrNotFound", err)
	}
}

func TestGetOrFetchPopulatesCache(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"score": 80}, nil
	}

	var first map[string]int
	if err := c.GetOrFetch(ctx, "k", &first, fetch); err != nil {
		t.Fatalf("first GetOrFetch failed: %v", err)
	}
	var second map[string]int
	if err := c.GetOrFetch(ctx, "k", &second, fetch); err != nil {
		t.Fatalf("second GetOrFetch failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if second["score"] != 80 {
		t.Errorf("second read = %v", second)
	}
}

func TestInvalidatePattern(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "quiz:1", 1)
	c.Set(ctx, "quiz:2", 2)
	c.Set(ctx, "user:1", 3)

	if err := c.InvalidatePattern(ctx, "quiz:*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	var v int
	if err := c.Get(ctx, "quiz:1", &v); !errors.Is(err, ErrNotFound) {
		t.Errorf("quiz:1 should be gone, got %v", err)
	}
	if err := c.Get(ctx, "user:1", &v); err != nil {
		t.Errorf("user:1 should survive, got %v", err)
	}
}

func TestNilClientDegrades(t *testing.T) {
	c := New(nil, "x:", time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "k", 1); err != nil {
		t.Errorf("Set on nil client = %v, want nil", err)
	}
	var v int
	if err := c.Get(ctx, "k", &v); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Get on nil client = %v, want ErrNotAvailable", err)
	}

	calls := 0
	if err := c.GetOrFetch(ctx, "k", &v, func() (interface{}, error) {
		calls++
		return 7, nil
	}); err != nil {
		t.Fatalf("GetOrFetch on nil client failed: %v", err)
	}
	if v != 7 || calls != 1 {
		t.Errorf("v=%d calls=%d, want 7 and 1", v, calls)
	}
}
