/**
 * @description
 * StatusTimelineAggregator folds deposit status observations into a stable,
 * append-only timeline for display. The "incomplete" status is a transient
 * waiting state and is never recorded. Everything else is appended at most
 * once per (status, message) value pair, so redelivered polls cannot grow
 * the timeline. Statuses are stored in Title Case; the snake_case wire form
 * is transformed exactly once, at append time.
 */

package app

import (
	"strings"

	"github.com/stellawallet/wallet-service/internal/domain"
)

// AppendStatus returns the timeline with the observation applied. The input
// slice is returned unchanged for filtered and duplicate observations.
func AppendStatus(timeline []domain.StatusEvent, status, message string) []domain.StatusEvent {
	if status == domain.StatusIncomplete {
		return timeline
	}

	event := domain.StatusEvent{
		Status:  SnakeToTitleCase(status),
		Message: message,
	}
	for _, existing := range timeline {
		if existing == event {
			return timeline
		}
	}
	return append(timeline, event)
}

// SnakeToTitleCase turns a machine status like "pending_anchor" into
// "Pending Anchor".
func SnakeToTitleCase(s string) string {
	words := strings.Split(s, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
