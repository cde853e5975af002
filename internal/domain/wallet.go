/**
 * @description
 * This file defines the core domain models for the wallet-service coordination
 * core: normalized payment events, balance snapshots, deposit sessions with
 * their phase state, status timeline entries, and transient notifications.
 *
 * @notes
 * - Balance amounts are carried as `int64` minor units (stroops at 7 decimal
 *   places for the native asset) to avoid floating-point inaccuracies.
 * - PaymentEvent amounts stay as the decimal strings delivered by the ledger;
 *   the wallet never does arithmetic on them.
 */

package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PaymentDirection tells whether a payment credited or debited the watched account.
type PaymentDirection string

const (
	DirectionSent     PaymentDirection = "sent"
	DirectionReceived PaymentDirection = "received"
)

// PaymentEvent is a normalized payment observation. It is immutable once
// produced; the cursor carries the stream resumption position of the record
// it was built from.
type PaymentEvent struct {
	ID              string           `json:"id"`
	Direction       PaymentDirection `json:"direction"`
	Amount          string           `json:"amount"`
	AssetCode       string           `json:"asset_code"`
	Counterparty    string           `json:"counterparty"`
	Timestamp       time.Time        `json:"timestamp"`
	TransactionHash string           `json:"transaction_hash"`
	Cursor          string           `json:"cursor"`
}

// BalanceSnapshot is one client-side observation of an asset balance.
// Successive snapshots are ordered by observation time, not ledger time.
type BalanceSnapshot struct {
	AssetCode  string    `json:"asset_code"`
	Amount     int64     `json:"amount"` // minor units
	ObservedAt time.Time `json:"observed_at"`
}

// DepositPhase is the single source of truth for where an interactive deposit
// stands. Exactly one phase is active at any time.
type DepositPhase string

const (
	PhaseIdle                DepositPhase = "idle"
	PhaseInitiating          DepositPhase = "initiating"
	PhaseAwaitingInteraction DepositPhase = "awaiting_interaction"
	PhaseCompleting          DepositPhase = "completing"
	PhasePolling             DepositPhase = "polling"
	PhaseCompleted           DepositPhase = "completed"
	PhaseFailed              DepositPhase = "failed"
)

// DepositSession holds the anchor-issued coordinates of one interactive
// deposit. It exists from successful initiation until completion, explicit
// cancellation, or unrecoverable error.
type DepositSession struct {
	ID                string    `json:"id"`
	InteractiveURL    string    `json:"interactive_url"`
	TransferServerURL string    `json:"transfer_server_url"`
	AuthToken         string    `json:"-"`
	TransactionID     string    `json:"transaction_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// StatusEvent is one (status, message) pair from deposit status polling.
// Statuses are stored in Title Case form; the snake_case wire value is
// transformed once, at append time.
type StatusEvent struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Wire-level transaction statuses the orchestrator special-cases. All other
// values are treated as opaque intermediate statuses.
const (
	StatusIncomplete = "incomplete"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// NotificationSeverity classifies a transient UI alert.
type NotificationSeverity string

const (
	SeveritySuccess NotificationSeverity = "success"
	SeverityInfo    NotificationSeverity = "info"
	SeverityError   NotificationSeverity = "error"
)

// NotificationEvent is a transient, self-expiring UI alert.
type NotificationEvent struct {
	ID        string               `json:"id"`
	Message   string               `json:"message"`
	Severity  NotificationSeverity `json:"severity"`
	TTL       time.Duration        `json:"-"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// ParseAmount converts a decimal amount string into minor units with the
// given precision. It rejects malformed input and excess fractional digits.
func ParseAmount(amount string, decimals int) (int64, error) {
	if amount == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}

	wholeUnits, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", amount)
	}
	pow := int64(1)
	for i := 0; i < decimals; i++ {
		pow *= 10
	}
	minor := wholeUnits * pow

	if frac != "" {
		fracUnits, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", amount)
		}
		for i := len(frac); i < decimals; i++ {
			fracUnits *= 10
		}
		if minor < 0 || strings.HasPrefix(whole, "-") {
			minor -= fracUnits
		} else {
			minor += fracUnits
		}
	}
	return minor, nil
}

// FormatAmount renders minor units as a decimal string with the given number
// of fractional digits, trimming trailing zeros ("50", "1.25", "0.0000001").
func FormatAmount(minor int64, decimals int) string {
	neg := minor < 0
	if neg {
		minor = -minor
	}
	pow := int64(1)
	for i := 0; i < decimals; i++ {
		pow *= 10
	}
	out := strconv.FormatInt(minor/pow, 10)
	if frac := minor % pow; frac != 0 {
		fracStr := strings.TrimRight(fmt.Sprintf("%0*d", decimals, frac), "0")
		out = out + "." + fracStr
	}
	if neg {
		out = "-" + out
	}
	return out
}
