package cache

import (
	"testing"
	"time"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := NewTTLCache[string, int](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("missing key should not be found")
	}

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("overwrite failed, got %d", v)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int](4, 20*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry should not be returned")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be removed, len=%d", c.Len())
	}
}

func TestTTLCacheEviction(t *testing.T) {
	c := NewTTLCache[int, int](2, time.Minute)
	c.Set(1, 1)
	c.Set(2, 2)
	c.Get(1)
	c.Set(3, 3)

	if _, ok := c.Get(2); ok {
		t.Fatal("least recently used entry should be evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Fatal("recently used entry should survive eviction")
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestTTLCacheModify(t *testing.T) {
	c := NewTTLCache[string, int](4, time.Minute)

	inc := func(current int, _ bool) int { return current + 1 }
	if v, ok := c.Modify("k", inc); !ok || v != 1 {
		t.Fatalf("first Modify = %d, %v", v, ok)
	}
	if v, _ := c.Modify("k", inc); v != 2 {
		t.Fatalf("second Modify = %d", v)
	}

	var nilCache *TTLCache[string, int]
	if _, ok := nilCache.Modify("k", inc); ok {
		t.Fatal("nil cache Modify should report not ok")
	}
}
