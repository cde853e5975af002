/**
 * @description
 * NotificationQueue is the time-boxed event queue feeding transient UI
 * alerts. Every producer in the core pushes through it: balance deltas,
 * account activity, deposit outcomes. Entries expire after their TTL or on
 * explicit dismissal; expiry is enforced by a periodic Sweep (wired to a cron
 * schedule in main) so reads never return stale entries.
 *
 * IDs are ULIDs: unique and time-ordered, which keeps the UI's rendering
 * order stable without a separate sequence.
 *
 * @dependencies
 * - github.com/oklog/ulid/v2: Time-derived unique identifiers.
 */

package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/stellawallet/wallet-service/internal/domain"
)

// NotificationQueue holds active transient notifications.
type NotificationQueue struct {
	clock      Clock
	defaultTTL time.Duration
	publisher  NotificationPublisher // optional

	mu    sync.Mutex
	items []domain.NotificationEvent
}

// NewNotificationQueue creates a queue. publisher may be nil; events are then
// only held locally.
func NewNotificationQueue(clock Clock, defaultTTL time.Duration, publisher NotificationPublisher) *NotificationQueue {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Second
	}
	return &NotificationQueue{
		clock:      clock,
		defaultTTL: defaultTTL,
		publisher:  publisher,
	}
}

// Push appends a notification with the given TTL (0 means the queue default)
// and returns the stored event. The broker publish is best-effort.
func (q *NotificationQueue) Push(message string, severity domain.NotificationSeverity, ttl time.Duration) domain.NotificationEvent {
	if ttl <= 0 {
		ttl = q.defaultTTL
	}
	now := q.clock.Now()
	event := domain.NotificationEvent{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Message:   message,
		Severity:  severity,
		TTL:       ttl,
		ExpiresAt: now.Add(ttl),
	}

	q.mu.Lock()
	q.items = append(q.items, event)
	q.mu.Unlock()

	if q.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := q.publisher.PublishNotificationCreated(ctx, event); err != nil {
			log.Printf("level=warn component=notification_queue msg=\"event publish failed\" notification_id=%s err=%v", event.ID, err)
		}
	}

	return event
}

// PushDraft pushes a reducer-produced draft with the default TTL.
func (q *NotificationQueue) PushDraft(draft NotificationDraft) domain.NotificationEvent {
	return q.Push(draft.Message, draft.Severity, 0)
}

// Dismiss removes a notification before its TTL elapses.
func (q *NotificationQueue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the notifications that have not expired yet, oldest first.
func (q *NotificationQueue) Active() []domain.NotificationEvent {
	now := q.clock.Now()
	q.mu.Lock()
	defer q.mu.Unlock()

	active := make([]domain.NotificationEvent, 0, len(q.items))
	for _, item := range q.items {
		if item.ExpiresAt.After(now) {
			active = append(active, item)
		}
	}
	return active
}

// Sweep drops expired notifications and reports how many were removed.
func (q *NotificationQueue) Sweep() int {
	now := q.clock.Now()
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, item := range q.items {
		if item.ExpiresAt.After(now) {
			kept = append(kept, item)
		} else {
			removed++
		}
	}
	q.items = kept
	return removed
}
