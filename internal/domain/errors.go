/**
 * @description
 * Sentinel errors shared across the wallet-service. The coordination core
 * recognizes three surfaced failure classes: missing accounts/sessions,
 * rejected input, and unrecoverable deposit protocol failures. Transient
 * stream errors are deliberately not represented here; watchers swallow and
 * log them without surfacing anything.
 */

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound marks a missing ledger account or deposit session.
	// Operations that hit it are rejected and never retried automatically.
	ErrAccountNotFound = errors.New("account not found")

	// ErrValidation marks malformed input, rejected synchronously before any
	// network call is made.
	ErrValidation = errors.New("validation failed")

	// ErrProtocolFailure marks an unrecoverable deposit session failure.
	// It always surfaces to the caller; the whole deposit is never retried.
	ErrProtocolFailure = errors.New("deposit protocol failure")
)

// Validationf builds an ErrValidation with a caller-facing reason.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Protocolf builds an ErrProtocolFailure with context.
func Protocolf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrProtocolFailure, fmt.Sprintf(format, args...))
}
