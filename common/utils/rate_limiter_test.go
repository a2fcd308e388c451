package utils

import (
	"testing"
	"time"
)

func TestRateLimiterBurstAndRefill(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, 3)
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("第 %d 次请求应该放行", i+1)
		}
	}
	if rl.Allow() {
		t.Fatalf("令牌耗尽后应该拒绝")
	}

	now = now.Add(500 * time.Millisecond)
	if !rl.Allow() {
		t.Fatalf("0.5 秒后应该补充 1 个令牌")
	}
	if rl.Allow() {
		t.Fatalf("补充的令牌已用完，应该拒绝")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !rl.Allow() {
			t.Fatalf("rate=0 时不应限流")
		}
	}
}

func TestTrimOrDefault(t *testing.T) {
	cases := []struct {
		in, def, want string
	}{
		{"  room1 ", "lobby", "room1"},
		{"   ", "lobby", "lobby"},
		{"", "guest", "guest"},
	}
	for _, c := range cases {
		if got := TrimOrDefault(c.in, c.def); got != c.want {
			t.Errorf("TrimOrDefault(%q, %q) = %q, 期望 %q", c.in, c.def, got, c.want)
		}
	}
}
