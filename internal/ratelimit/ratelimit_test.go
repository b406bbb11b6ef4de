package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinCooldown(t *testing.T) {
	now := time.Date(2025, 10, 12, 18, 0, 0, 0, time.UTC)
	l := NewWithClock(2*time.Second, func() time.Time { return now })

	if !l.Allow("u1") {
		t.Fatal("first command must pass")
	}
	now = now.Add(500 * time.Millisecond)
	if l.Allow("u1") {
		t.Error("second command inside the cooldown must be rejected")
	}
	now = now.Add(2 * time.Second)
	if !l.Allow("u1") {
		t.Error("command after the cooldown must pass")
	}
}

func TestUsersAreIndependent(t *testing.T) {
	now := time.Date(2025, 10, 12, 18, 0, 0, 0, time.UTC)
	l := NewWithClock(2*time.Second, func() time.Time { return now })

	if !l.Allow("u1") {
		t.Fatal("first command must pass")
	}
	if !l.Allow("u2") {
		t.Error("another user's command must not be throttled")
	}
}

func TestRejectedCallDoesNotExtendWindow(t *testing.T) {
	now := time.Date(2025, 10, 12, 18, 0, 0, 0, time.UTC)
	l := NewWithClock(2*time.Second, func() time.Time { return now })

	l.Allow("u1")
	now = now.Add(1900 * time.Millisecond)
	if l.Allow("u1") {
		t.Fatal("still inside the window")
	}
	now = now.Add(200 * time.Millisecond)
	if !l.Allow("u1") {
		t.Error("window is measured from the last allowed command")
	}
}
