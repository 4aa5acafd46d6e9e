package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestManager(t *testing.T, rpm int) *Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := NewManager("redis://"+mr.Addr(), rpm)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestCheckRateWithinLimit(t *testing.T) {
	m := newTestManager(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := m.CheckRate(ctx, "key1")
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	allowed, reset, err := m.CheckRate(ctx, "key1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if allowed {
		t.Fatal("fourth request must be rejected")
	}
	if reset <= 0 || reset > 60 {
		t.Fatalf("reset out of range: %d", reset)
	}
}

func TestCheckRateIsolatesCallers(t *testing.T) {
	m := newTestManager(t, 1)
	ctx := context.Background()

	if allowed, _, _ := m.CheckRate(ctx, "key1"); !allowed {
		t.Fatal("first request for key1 should pass")
	}
	if allowed, _, _ := m.CheckRate(ctx, "key2"); !allowed {
		t.Fatal("key2 must have its own window")
	}
	if allowed, _, _ := m.CheckRate(ctx, "key1"); allowed {
		t.Fatal("key1 window is exhausted")
	}
}
