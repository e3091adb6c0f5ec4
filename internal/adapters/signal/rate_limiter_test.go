package signal

import (
	"testing"
	"time"
)

func TestJoinRateLimiter(t *testing.T) {
	rl := NewJoinRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("attempt %d blocked below the limit", i)
		}
	}
	if rl.Allow("a") {
		t.Error("attempt above the limit allowed")
	}
	if !rl.Allow("b") {
		t.Error("one client's attempts counted against another")
	}
}

func TestJoinRateLimiterWindowSlides(t *testing.T) {
	rl := NewJoinRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("a") {
		t.Fatal("first attempt blocked")
	}
	if rl.Allow("a") {
		t.Fatal("second immediate attempt allowed")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("attempt blocked after the window passed")
	}
}

func TestJoinRateLimiterDisabled(t *testing.T) {
	rl := NewJoinRateLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		if !rl.Allow("a") {
			t.Fatal("zero limit must disable limiting")
		}
	}
}
