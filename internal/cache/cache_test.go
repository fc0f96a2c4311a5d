package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set(ctx, "k", []byte("v"))

	val, ok := c.Get(ctx, "k")
	if !ok || string(val) != "v" {
		t.Fatalf("got %q ok=%v, want v", val, ok)
	}

	c.Delete(ctx, "k")

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("deleted key should miss")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10 * time.Millisecond)

	c.Set(ctx, "k", []byte("v"))
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry should miss")
	}
}
