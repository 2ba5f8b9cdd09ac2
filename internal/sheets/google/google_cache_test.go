package google

import (
	"context"
	"testing"
	"time"
)

func TestRowCacheExpiration(t *testing.T) {
	c := &Client{
		cacheValidDuration: 100 * time.Millisecond, // Short TTL for testing
	}

	// Initial state: cache should be expired
	c.mu.Lock()
	isValid := time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if isValid {
		t.Error("cache should start expired")
	}

	// Manually set cache to valid state
	c.mu.Lock()
	c.cachedRowCount = 10
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	c.mu.Lock()
	isValid = time.Now().Before(c.cacheExpiresAt)
	rowCount := c.cachedRowCount
	c.mu.Unlock()
	if !isValid {
		t.Error("cache should be valid immediately after update")
	}
	if rowCount != 10 {
		t.Errorf("cached row count should be 10, got %d", rowCount)
	}

	// Wait for cache to expire
	time.Sleep(150 * time.Millisecond)

	c.mu.Lock()
	isValid = time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if isValid {
		t.Error("cache should be expired after TTL")
	}
}

func TestInvalidateRowCache(t *testing.T) {
	c := &Client{
		cacheValidDuration: 10 * time.Minute,
	}

	c.mu.Lock()
	c.cachedRowCount = 42
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	c.InvalidateRowCache()

	c.mu.Lock()
	isValid := time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if isValid {
		t.Error("cache should be expired after invalidation")
	}
}

func TestCacheInitialState(t *testing.T) {
	c := &Client{
		cacheValidDuration: 2 * time.Minute,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedRowCount != 0 {
		t.Errorf("initial cachedRowCount should be 0, got %d", c.cachedRowCount)
	}
	if time.Now().Before(c.cacheExpiresAt) {
		t.Error("initial cacheExpiresAt should be in the past (expired)")
	}
	if c.cacheValidDuration != 2*time.Minute {
		t.Errorf("cache duration should be 2 minutes, got %v", c.cacheValidDuration)
	}
}

func TestNextRowFromCache(t *testing.T) {
	c := &Client{
		cacheValidDuration: 2 * time.Minute,
	}

	tests := []struct {
		name           string
		cachedRowCount int
		expectedNext   int
	}{
		{"empty sheet", 0, 1},
		{"one row", 1, 2},
		{"ten rows", 10, 11},
		{"hundred rows", 100, 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.mu.Lock()
			c.cachedRowCount = tt.cachedRowCount
			c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
			c.mu.Unlock()

			// Fresh cache: nextRow never touches the API.
			next, err := c.nextRow(context.Background())
			if err != nil {
				t.Fatalf("nextRow: %v", err)
			}
			if next != tt.expectedNext {
				t.Errorf("expected next row %d, got %d", tt.expectedNext, next)
			}

			c.advanceRowCache()
			next, err = c.nextRow(context.Background())
			if err != nil {
				t.Fatalf("nextRow after advance: %v", err)
			}
			if next != tt.expectedNext+1 {
				t.Errorf("expected next row %d after advance, got %d", tt.expectedNext+1, next)
			}
		})
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := &Client{
		cacheValidDuration: 2 * time.Minute,
	}

	done := make(chan struct{})

	// Writer goroutine
	go func() {
		for i := 0; i < 100; i++ {
			c.mu.Lock()
			c.cachedRowCount = i
			c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
			c.mu.Unlock()
		}
		done <- struct{}{}
	}()

	// Advancer goroutine
	go func() {
		for i := 0; i < 100; i++ {
			c.advanceRowCache()
		}
		done <- struct{}{}
	}()

	// Invalidator goroutine
	go func() {
		for i := 0; i < 50; i++ {
			c.InvalidateRowCache()
		}
		done <- struct{}{}
	}()

	<-done
	<-done
	<-done
}
