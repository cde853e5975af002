/**
 * @description
 * PaymentInflowWatcher maintains a live, cursor-resumed subscription to the
 * payments of one account. The transport delivers both directions at least
 * once; the watcher turns that into effectively-once inbound delivery:
 *
 *   - the cursor advances to every record's paging token unconditionally,
 *     including outbound records that are filtered out, so no record is ever
 *     reprocessed after a reconnect;
 *   - only payments whose destination is the watched account are surfaced;
 *   - assets are classified as the native asset or their issued code before
 *     the normalized event reaches the caller.
 *
 * Cursor writes are synchronous with record processing. An optional
 * CursorStore makes the cursor survive process restarts.
 */

package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/stellawallet/wallet-service/internal/domain"
	"github.com/stellawallet/wallet-service/pkg/horizonclient"
)

// PaymentInflowWatcher watches one account for incoming payments.
type PaymentInflowWatcher struct {
	ledger          LedgerClient
	cursors         CursorStore // optional
	nativeAssetCode string

	mu        sync.Mutex
	accountID string
	cursor    string
	current   *WatchHandle
}

// NewPaymentInflowWatcher creates a watcher. cursors may be nil, in which
// case the cursor lives only in memory.
func NewPaymentInflowWatcher(ledger LedgerClient, cursors CursorStore, nativeAssetCode string) *PaymentInflowWatcher {
	return &PaymentInflowWatcher{
		ledger:          ledger,
		cursors:         cursors,
		nativeAssetCode: nativeAssetCode,
	}
}

// Watch starts the payment subscription for accountID, resuming from the
// last seen cursor for that account. Gating mirrors AccountChangeWatcher:
// invalid addresses and failed existence probes are inert no-ops.
func (w *PaymentInflowWatcher) Watch(ctx context.Context, accountID string, onReceived func(domain.PaymentEvent)) *WatchHandle {
	w.stopCurrent()

	if !domain.IsRegularAccountID(accountID) {
		return w.install(inertHandle())
	}

	exists, err := w.ledger.AccountExists(ctx, accountID)
	if err != nil {
		log.Printf("level=warn component=payment_watcher msg=\"existence probe failed; not subscribing\" account_id=%s err=%v", accountID, err)
		return w.install(inertHandle())
	}
	if !exists {
		log.Printf("level=warn component=payment_watcher msg=\"account not found; not subscribing\" account_id=%s", accountID)
		return w.install(inertHandle())
	}

	cursor := w.prepareCursor(ctx, accountID)

	stop := w.ledger.StreamPayments(ctx, accountID, cursor, func(record horizonclient.PaymentRecord) {
		w.handleRecord(ctx, accountID, record, onReceived)
	}, func(streamErr error) {
		log.Printf("level=warn component=payment_watcher msg=\"stream error (ignored)\" account_id=%s err=%v", accountID, streamErr)
	})

	return w.install(&WatchHandle{stop: stop})
}

// Stop ends the current subscription, if any.
func (w *PaymentInflowWatcher) Stop() {
	w.stopCurrent()
}

// Cursor returns the last processed stream position.
func (w *PaymentInflowWatcher) Cursor() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursor
}

func (w *PaymentInflowWatcher) handleRecord(ctx context.Context, accountID string, record horizonclient.PaymentRecord, onReceived func(domain.PaymentEvent)) {
	// Advance the cursor for every record regardless of direction, otherwise
	// a reconnect would replay filtered-out outbound records forever.
	w.mu.Lock()
	w.cursor = record.PagingToken
	w.mu.Unlock()
	if w.cursors != nil {
		if err := w.cursors.Save(ctx, accountID, record.PagingToken); err != nil {
			log.Printf("level=warn component=payment_watcher msg=\"cursor persist failed\" account_id=%s cursor=%s err=%v", accountID, record.PagingToken, err)
		}
	}

	if record.To != accountID {
		return
	}

	onReceived(NormalizePayment(record, accountID, w.nativeAssetCode))
}

// prepareCursor resets state when the account changes and loads any persisted
// cursor for the new account.
func (w *PaymentInflowWatcher) prepareCursor(ctx context.Context, accountID string) string {
	w.mu.Lock()
	if w.accountID != accountID {
		w.accountID = accountID
		w.cursor = ""
	}
	cursor := w.cursor
	w.mu.Unlock()

	if cursor == "" && w.cursors != nil {
		stored, err := w.cursors.Load(ctx, accountID)
		if err != nil {
			log.Printf("level=warn component=payment_watcher msg=\"cursor load failed; starting from stream head\" account_id=%s err=%v", accountID, err)
			return ""
		}
		if stored != "" {
			w.mu.Lock()
			w.cursor = stored
			w.mu.Unlock()
			cursor = stored
		}
	}
	return cursor
}

func (w *PaymentInflowWatcher) install(h *WatchHandle) *WatchHandle {
	w.mu.Lock()
	w.current = h
	w.mu.Unlock()
	return h
}

func (w *PaymentInflowWatcher) stopCurrent() {
	w.mu.Lock()
	current := w.current
	w.current = nil
	w.mu.Unlock()
	if current != nil {
		current.Stop()
	}
}

// NormalizePayment converts a wire payment record into the wallet's
// normalized event. History listing and the inflow stream share these rules.
func NormalizePayment(record horizonclient.PaymentRecord, accountID, nativeAssetCode string) domain.PaymentEvent {
	direction := domain.DirectionSent
	counterparty := record.To
	if record.To == accountID {
		direction = domain.DirectionReceived
		counterparty = record.From
	}

	assetCode := record.AssetCode
	if record.AssetType == "native" {
		assetCode = nativeAssetCode
	} else if assetCode == "" {
		assetCode = "Unknown"
	}

	timestamp, err := time.Parse(time.RFC3339, record.CreatedAt)
	if err != nil {
		timestamp = time.Time{}
	}

	return domain.PaymentEvent{
		ID:              record.ID,
		Direction:       direction,
		Amount:          record.Amount,
		AssetCode:       assetCode,
		Counterparty:    counterparty,
		Timestamp:       timestamp,
		TransactionHash: record.TransactionHash,
		Cursor:          record.PagingToken,
	}
}
