package common_test

import (
	"testing"
	"time"

	"github.com/Darlykn/ClockIn/common"
)

func TestCacheStore(t *testing.T) {
	cache := common.NewCacheStore()

	// 1) Set + Get
	cache.Set("foo", []byte("bar"), time.Hour)
	val, found := cache.Get("foo")
	if !found {
		t.Error("expected 'foo' to be in cache, not found")
	}
	if string(val) != "bar" {
		t.Errorf("expected 'bar', got %s", string(val))
	}

	// 2) Delete
	cache.Delete("foo")
	_, found = cache.Get("foo")
	if found {
		t.Error("expected 'foo' to be deleted, but still found")
	}
}

func TestCacheStore_Flush(t *testing.T) {
	cache := common.NewCacheStore()

	cache.Set("a", []byte("1"), time.Hour)
	cache.Set("b", []byte("2"), time.Hour)
	cache.Flush()

	if _, found := cache.Get("a"); found {
		t.Error("expected 'a' to be gone after flush")
	}
	if _, found := cache.Get("b"); found {
		t.Error("expected 'b' to be gone after flush")
	}
}

func TestCacheStore_Expiration(t *testing.T) {
	cache := common.NewCacheStore()

	cache.Set("short", []byte("lived"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found := cache.Get("short"); found {
		t.Error("expected 'short' to have expired")
	}
}
