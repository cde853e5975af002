/**
 * @description
 * This file declares the capability interfaces the coordination core depends
 * on. The concrete implementations live in pkg/horizonclient, pkg/sep24client,
 * pkg/rabbitmq, and internal/store; tests substitute stubs.
 *
 * @notes
 * - The transaction builder/signer is an opaque capability: the core validates
 *   inputs and submits envelopes but never constructs or signs them itself.
 */

package app

import (
	"context"
	"time"

	"github.com/stellawallet/wallet-service/internal/domain"
	"github.com/stellawallet/wallet-service/pkg/horizonclient"
	"github.com/stellawallet/wallet-service/pkg/sep24client"
)

// LedgerClient is the read/stream/submit surface of the remote ledger.
type LedgerClient interface {
	LoadAccount(ctx context.Context, accountID string) (*horizonclient.AccountDetail, error)
	AccountExists(ctx context.Context, accountID string) (bool, error)
	FetchPayments(ctx context.Context, accountID string, limit int) ([]horizonclient.PaymentRecord, error)
	SubmitTransaction(ctx context.Context, envelopeXDR string) (*horizonclient.SubmitResponse, error)
	StreamAccount(ctx context.Context, accountID string, onMessage func(), onError func(error)) horizonclient.StopFunc
	StreamPayments(ctx context.Context, accountID, cursor string, onMessage func(horizonclient.PaymentRecord), onError func(error)) horizonclient.StopFunc
}

// DepositSessionClient drives the anchor's interactive deposit protocol.
type DepositSessionClient interface {
	InitiateInteractiveSession(ctx context.Context, p sep24client.InitiateParams) (*sep24client.Session, error)
	TriggerCompletion(ctx context.Context, interactiveURL string) error
	PollStatus(ctx context.Context, transferServerURL, transactionID, authToken string) (*sep24client.StatusResult, error)
}

// TransactionSigner builds and signs a classic payment envelope for the
// wallet account. Key handling is entirely the integrator's concern.
type TransactionSigner interface {
	Address() string
	BuildPayment(ctx context.Context, destination, assetCode, amount string) (envelopeXDR string, err error)
}

// CursorStore persists payment-stream resumption cursors so a restart does
// not redeliver already-processed payments.
type CursorStore interface {
	Load(ctx context.Context, accountID string) (string, error)
	Save(ctx context.Context, accountID, cursor string) error
}

// NotificationPublisher fans notification events out to interested consumers.
type NotificationPublisher interface {
	PublishNotificationCreated(ctx context.Context, event domain.NotificationEvent) error
}

// Timer is a cancelable pending callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time so TTL expiry and the deposit reset delay are
// testable with a simulated clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock returns the wall clock used outside of tests.
func SystemClock() Clock { return systemClock{} }
