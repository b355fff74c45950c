package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	b, ok, err := c.GetBytes("k")
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if string(b) != "payload" {
		t.Fatalf("got %q", b)
	}
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTLCache()
	_, ok, err := c.GetBytes("absent")
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	_, ok, _ := c.GetBytes("k")
	if ok {
		t.Fatal("entry should have expired")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("x"), 0); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	_, ok, _ := c.GetBytes("k")
	if !ok {
		t.Fatal("zero TTL entry should persist")
	}
}
