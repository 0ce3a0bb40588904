package cache

import (
	"testing"
	"time"

	"tamerun/internal/log"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.nowFn = clock.Now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %s to survive", k)
		}
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	clock.now = clock.now.Add(30 * time.Second)
	c.Set("b", "2")

	clock.now = clock.now.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to expire")
	}
	if v, ok := c.Get("b"); !ok || v != "2" {
		t.Fatalf("expected b, got %q %v", v, ok)
	}

	clock.now = clock.now.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 || c.Size() != 0 {
		t.Fatalf("CleanExpired removed %d, size %d", n, c.Size())
	}
}

func TestLRUOverwriteAndClear(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" || c.Size() != 1 {
		t.Fatalf("overwrite failed: %q size %d", v, c.Size())
	}
	c.Delete("a")
	c.Set("b", "3")
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, size %d", c.Size())
	}
}

func TestManagerSweep(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", "1")
	c.Set("b", "2")
	clock.now = clock.now.Add(2 * time.Second)

	m := NewManager(log.Discard())
	m.Register(c)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep removed %d, want 2", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
