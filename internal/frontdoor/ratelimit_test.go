package frontdoor

import (
	"testing"
	"time"
)

func TestLimiterSet_allowAndSweep(t *testing.T) {
	clock := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	set := newLimiterSet(1, 1)
	set.now = func() time.Time { return clock }

	if !set.allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if set.allow("10.0.0.1") {
		t.Fatal("second request in the same instant should be limited")
	}
	if !set.allow("10.0.0.2") {
		t.Fatal("other clients have their own bucket")
	}

	clock = clock.Add(11 * time.Minute)
	set.allow("10.0.0.2")

	if n := set.sweep(10 * time.Minute); n != 1 {
		t.Fatalf("expected 1 bucket after sweep, got %d", n)
	}
	if _, ok := set.buckets["10.0.0.1"]; ok {
		t.Error("idle bucket should have been dropped")
	}
}
