/**
 * @description
 * This file defines the `Repository` interface, the contract for the
 * wallet-service's persistence of observed payment events. The interface
 * decouples the coordination core from the PostgreSQL implementation and
 * lets tests substitute stubs.
 *
 * Persistence is an optional convenience: the core works without a database,
 * and all writes through this interface are best-effort.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/stellawallet/wallet-service/internal/domain"
)

// ErrPaymentNotFound is returned when a payment event lookup matches nothing.
var ErrPaymentNotFound = errors.New("payment event not found")

// Repository defines the persistence operations for observed payments.
type Repository interface {
	// SavePaymentEvent records one normalized payment observation. Saving the
	// same event id twice is a no-op, matching the watcher's
	// effectively-once delivery.
	SavePaymentEvent(ctx context.Context, accountID string, event domain.PaymentEvent) error

	// ListPaymentEvents returns the most recently observed payments for an
	// account, newest first.
	ListPaymentEvents(ctx context.Context, accountID string, limit int) ([]domain.PaymentEvent, error)
}
