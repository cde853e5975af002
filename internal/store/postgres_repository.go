/**
 * @description
 * PostgreSQL implementation of the `Repository` interface using a pgx
 * connection pool. Observed payments are stored keyed by their ledger
 * operation id; redelivery of an already-stored event is absorbed with
 * ON CONFLICT DO NOTHING.
 *
 * Expected schema:
 *
 *   CREATE TABLE observed_payments (
 *     id               TEXT PRIMARY KEY,
 *     account_id       TEXT NOT NULL,
 *     direction        TEXT NOT NULL,
 *     amount           TEXT NOT NULL,
 *     asset_code       TEXT NOT NULL,
 *     counterparty     TEXT NOT NULL,
 *     transaction_hash TEXT NOT NULL,
 *     cursor           TEXT NOT NULL,
 *     occurred_at      TIMESTAMPTZ NOT NULL,
 *     observed_at      TIMESTAMPTZ NOT NULL DEFAULT now()
 *   );
 *   CREATE INDEX observed_payments_account_idx
 *     ON observed_payments (account_id, occurred_at DESC);
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: PostgreSQL connection pooling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stellawallet/wallet-service/internal/domain"
)

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a repository backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SavePaymentEvent inserts one observed payment, ignoring duplicates.
func (r *PostgresRepository) SavePaymentEvent(ctx context.Context, accountID string, event domain.PaymentEvent) error {
	query := `
		INSERT INTO observed_payments
			(id, account_id, direction, amount, asset_code, counterparty, transaction_hash, cursor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		accountID,
		string(event.Direction),
		event.Amount,
		event.AssetCode,
		event.Counterparty,
		event.TransactionHash,
		event.Cursor,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment event: %w", err)
	}
	return nil
}

// ListPaymentEvents returns the newest observed payments for an account.
func (r *PostgresRepository) ListPaymentEvents(ctx context.Context, accountID string, limit int) ([]domain.PaymentEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, direction, amount, asset_code, counterparty, transaction_hash, cursor, occurred_at
		FROM observed_payments
		WHERE account_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}
	defer rows.Close()

	var events []domain.PaymentEvent
	for rows.Next() {
		var event domain.PaymentEvent
		var direction string
		if err := rows.Scan(
			&event.ID,
			&direction,
			&event.Amount,
			&event.AssetCode,
			&event.Counterparty,
			&event.TransactionHash,
			&event.Cursor,
			&event.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		event.Direction = domain.PaymentDirection(direction)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment events: %w", err)
	}
	return events, nil
}
