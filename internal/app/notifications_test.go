package app

import (
	"testing"
	"time"

	"github.com/stellawallet/wallet-service/internal/domain"
)

func TestNotificationQueue_ExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	q := NewNotificationQueue(clock, 5*time.Second, nil)

	q.Push("Received 50 XLM", domain.SeveritySuccess, 0)
	if len(q.Active()) != 1 {
		t.Fatal("expected one active notification")
	}

	clock.Advance(4 * time.Second)
	if len(q.Active()) != 1 {
		t.Fatal("expected notification to still be active before TTL")
	}

	clock.Advance(2 * time.Second)
	if len(q.Active()) != 0 {
		t.Fatal("expected notification to expire after TTL")
	}
}

func TestNotificationQueue_ExplicitTTLWins(t *testing.T) {
	clock := newFakeClock()
	q := NewNotificationQueue(clock, 5*time.Second, nil)

	q.Push("Account activity detected - refreshing data", domain.SeverityInfo, 3*time.Second)
	clock.Advance(3500 * time.Millisecond)
	if len(q.Active()) != 0 {
		t.Fatal("expected 3s notification to be gone at 3.5s")
	}
}

func TestNotificationQueue_Dismiss(t *testing.T) {
	clock := newFakeClock()
	q := NewNotificationQueue(clock, 5*time.Second, nil)

	event := q.Push("Deposit completed", domain.SeveritySuccess, 0)
	if !q.Dismiss(event.ID) {
		t.Fatal("expected dismissal to succeed")
	}
	if q.Dismiss(event.ID) {
		t.Fatal("expected second dismissal to report missing")
	}
	if len(q.Active()) != 0 {
		t.Fatal("expected queue to be empty after dismissal")
	}
}

func TestNotificationQueue_SweepRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	q := NewNotificationQueue(clock, 5*time.Second, nil)

	q.Push("first", domain.SeverityInfo, 1*time.Second)
	q.Push("second", domain.SeverityInfo, 10*time.Second)

	clock.Advance(2 * time.Second)
	if removed := q.Sweep(); removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	active := q.Active()
	if len(active) != 1 || active[0].Message != "second" {
		t.Fatalf("expected only the long-lived notification to remain, got %+v", active)
	}
}

func TestNotificationQueue_IDsAreUnique(t *testing.T) {
	clock := newFakeClock()
	q := NewNotificationQueue(clock, time.Minute, nil)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		event := q.Push("dup-check", domain.SeverityInfo, 0)
		if seen[event.ID] {
			t.Fatalf("duplicate notification id %s", event.ID)
		}
		seen[event.ID] = true
	}
}
