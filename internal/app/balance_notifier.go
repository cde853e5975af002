/**
 * @description
 * BalanceDeltaNotifier turns successive balance observations into
 * human-readable "received"/"sent" notification drafts. It is a pure reducer
 * over adjacent snapshot pairs: callers feed it the previous snapshot as
 * state, never historical ones.
 *
 * The comparison is strictly three-way. With no baseline (previous == nil)
 * nothing is emitted, which prevents the spurious "received full balance"
 * alert on initial load.
 */

package app

import (
	"fmt"

	"github.com/stellawallet/wallet-service/internal/domain"
)

// NotificationDraft is a notification-to-be produced by a reducer; the queue
// assigns identity and TTL when it is pushed.
type NotificationDraft struct {
	Message  string
	Severity domain.NotificationSeverity
}

// BalanceDeltaNotifier compares balance snapshots for one asset.
type BalanceDeltaNotifier struct {
	decimals int
}

// NewBalanceDeltaNotifier creates a notifier formatting deltas with the given
// asset precision.
func NewBalanceDeltaNotifier(decimals int) *BalanceDeltaNotifier {
	return &BalanceDeltaNotifier{decimals: decimals}
}

// Diff computes the notification for the transition previous→current.
// It returns nil when there is no baseline or the balance is unchanged.
func (n *BalanceDeltaNotifier) Diff(previous *domain.BalanceSnapshot, current domain.BalanceSnapshot) *NotificationDraft {
	if previous == nil {
		return nil
	}

	switch {
	case current.Amount > previous.Amount:
		delta := domain.FormatAmount(current.Amount-previous.Amount, n.decimals)
		return &NotificationDraft{
			Message:  fmt.Sprintf("Received %s %s", delta, current.AssetCode),
			Severity: domain.SeveritySuccess,
		}
	case current.Amount < previous.Amount:
		delta := domain.FormatAmount(previous.Amount-current.Amount, n.decimals)
		return &NotificationDraft{
			Message:  fmt.Sprintf("Sent %s %s", delta, current.AssetCode),
			Severity: domain.SeverityInfo,
		}
	default:
		return nil
	}
}
