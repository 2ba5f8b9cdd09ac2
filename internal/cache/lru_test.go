package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](3, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v, want alpha, true", got, ok)
	}

	c.Set("a", "updated")
	got, _ = c.Get("a")
	if got != "updated" {
		t.Errorf("Get(a) after overwrite = %q, want updated", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("Size() after expired Get = %d, want 0", c.Size())
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(30 * time.Millisecond)
	c.Set("fresh", 3)

	cleaned := c.CleanExpired()
	if cleaned != 2 {
		t.Errorf("CleanExpired() = %d, want 2", cleaned)
	}
	if c.Size() != 1 {
		t.Errorf("Size() after clean = %d, want 1", c.Size())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("expected fresh entry to survive cleanup")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a") // no-op on missing key

	if _, ok := c.Get("a"); ok {
		t.Error("expected deleted entry to miss")
	}
}

func TestManagerSweep(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(20 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for c.Size() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweep did not remove expired entry in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerStopTwice(t *testing.T) {
	m := NewManager()
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
