/**
 * @description
 * AccountChangeWatcher maintains a live subscription to one account's change
 * events. It probes for account existence before subscribing, swallows stream
 * errors as expected transient noise, and guarantees at most one active
 * subscription per watcher instance: re-watching implicitly stops the prior
 * subscription before the new one opens.
 *
 * Callers get back an owned handle whose Stop is idempotent and safe to call
 * from teardown paths even when nothing was subscribed.
 */

package app

import (
	"context"
	"log"
	"sync"

	"github.com/stellawallet/wallet-service/internal/domain"
	"github.com/stellawallet/wallet-service/pkg/horizonclient"
)

// WatchHandle owns one live subscription. Stop is idempotent; an inert handle
// (no subscription behind it) is still safe to stop.
type WatchHandle struct {
	once sync.Once
	stop horizonclient.StopFunc
}

// Stop tears the subscription down. Calling it again, or on an inert handle,
// is a no-op.
func (h *WatchHandle) Stop() {
	h.once.Do(func() {
		if h.stop != nil {
			h.stop()
		}
	})
}

func inertHandle() *WatchHandle { return &WatchHandle{} }

// AccountChangeWatcher watches one account for state changes.
type AccountChangeWatcher struct {
	ledger LedgerClient

	mu      sync.Mutex
	current *WatchHandle
}

// NewAccountChangeWatcher creates a watcher bound to a ledger client.
func NewAccountChangeWatcher(ledger LedgerClient) *AccountChangeWatcher {
	return &AccountChangeWatcher{ledger: ledger}
}

// Watch starts a subscription for accountID, invoking onUpdate for every
// inbound change message. The payload is never inspected; the update itself
// is the signal. Invalid addresses and failed existence probes leave the
// watcher inert without error: there is nothing to watch yet.
func (w *AccountChangeWatcher) Watch(ctx context.Context, accountID string, onUpdate func()) *WatchHandle {
	w.stopCurrent()

	if !domain.IsRegularAccountID(accountID) {
		return w.install(inertHandle())
	}

	exists, err := w.ledger.AccountExists(ctx, accountID)
	if err != nil {
		log.Printf("level=warn component=account_watcher msg=\"existence probe failed; not subscribing\" account_id=%s err=%v", accountID, err)
		return w.install(inertHandle())
	}
	if !exists {
		log.Printf("level=warn component=account_watcher msg=\"account not found; not subscribing\" account_id=%s", accountID)
		return w.install(inertHandle())
	}

	stop := w.ledger.StreamAccount(ctx, accountID, onUpdate, func(streamErr error) {
		// Transient stream errors are expected (network blips, idle resets).
		// The subscription stays open; only Stop tears it down.
		log.Printf("level=warn component=account_watcher msg=\"stream error (ignored)\" account_id=%s err=%v", accountID, streamErr)
	})

	return w.install(&WatchHandle{stop: stop})
}

// Stop ends the current subscription, if any.
func (w *AccountChangeWatcher) Stop() {
	w.stopCurrent()
}

func (w *AccountChangeWatcher) install(h *WatchHandle) *WatchHandle {
	w.mu.Lock()
	w.current = h
	w.mu.Unlock()
	return h
}

func (w *AccountChangeWatcher) stopCurrent() {
	w.mu.Lock()
	current := w.current
	w.current = nil
	w.mu.Unlock()
	if current != nil {
		current.Stop()
	}
}
