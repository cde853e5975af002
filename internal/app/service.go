/**
 * @description
 * This file contains the core wallet service. The `Service` struct owns the
 * wallet session for one account at a time: it starts and stops the account
 * and payment watchers, folds balance observations through the delta
 * notifier into the notification queue, lists payment history, and validates
 * and submits outgoing payments through the opaque signer capability.
 *
 * Key features:
 * - Session lifecycle: starting a session for a new account implicitly tears
 *   down the previous account's subscriptions first.
 * - Account activity triggers a balance refetch and an informational alert.
 * - Inbound payments are persisted best-effort when a repository is wired.
 * - Payment sending rejects malformed input synchronously, before any
 *   network call.
 *
 * @dependencies
 * - context, errors, fmt, log, strconv, sync, time: Standard Go libraries.
 * - internal/domain, internal/store: Domain models and persistence.
 * - pkg/horizonclient: Ledger client types.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/stellawallet/wallet-service/internal/domain"
	"github.com/stellawallet/wallet-service/internal/store"
	"github.com/stellawallet/wallet-service/pkg/horizonclient"
	"github.com/stellawallet/wallet-service/pkg/sep24client"
)

const (
	defaultHistoryLimit = 20
	activityAlertTTL    = 3 * time.Second
)

// ErrPersistenceDisabled is returned by observed-payment reads when no
// repository is configured.
var ErrPersistenceDisabled = errors.New("observed payment persistence is not configured")

// ErrNoActiveSession is returned by account-scoped operations before a
// wallet session has been started.
var ErrNoActiveSession = errors.New("no active wallet session")

// Service provides the wallet's account-facing operations.
type Service struct {
	ledger           LedgerClient
	accountWatcher   *AccountChangeWatcher
	paymentWatcher   *PaymentInflowWatcher
	notifier         *BalanceDeltaNotifier
	queue            *NotificationQueue
	repo             store.Repository  // optional
	signer           TransactionSigner // optional
	nativeAssetCode  string
	assetDecimals    int
	maxPaymentAmount float64

	deposits      *InteractiveDepositOrchestrator
	homeDomain    string
	depositSigner sep24client.ChallengeSigner

	mu            sync.Mutex
	accountID     string
	accountHandle *WatchHandle
	paymentHandle *WatchHandle
	prevBalance   *domain.BalanceSnapshot
}

// NewService creates the wallet service. repo and signer may be nil; the
// corresponding operations degrade or reject accordingly.
func NewService(
	ledger LedgerClient,
	accountWatcher *AccountChangeWatcher,
	paymentWatcher *PaymentInflowWatcher,
	notifier *BalanceDeltaNotifier,
	queue *NotificationQueue,
	repo store.Repository,
	signer TransactionSigner,
	nativeAssetCode string,
	assetDecimals int,
	maxPaymentAmount float64,
) *Service {
	if maxPaymentAmount <= 0 {
		maxPaymentAmount = 1000000
	}
	return &Service{
		ledger:           ledger,
		accountWatcher:   accountWatcher,
		paymentWatcher:   paymentWatcher,
		notifier:         notifier,
		queue:            queue,
		repo:             repo,
		signer:           signer,
		nativeAssetCode:  nativeAssetCode,
		assetDecimals:    assetDecimals,
		maxPaymentAmount: maxPaymentAmount,
	}
}

// StartSession begins watching accountID, replacing any prior session. The
// balance baseline is reset so the first observation after a switch never
// produces a delta notification.
func (s *Service) StartSession(ctx context.Context, accountID string) error {
	if !domain.IsRegularAccountID(accountID) {
		return domain.Validationf("account id is not a valid regular account address")
	}

	s.stopWatchers()

	s.mu.Lock()
	s.accountID = accountID
	s.prevBalance = nil
	s.mu.Unlock()

	accountHandle := s.accountWatcher.Watch(ctx, accountID, s.onAccountActivity)
	paymentHandle := s.paymentWatcher.Watch(ctx, accountID, s.onPaymentReceived)

	s.mu.Lock()
	s.accountHandle = accountHandle
	s.paymentHandle = paymentHandle
	s.mu.Unlock()

	// Establish the balance baseline. Failures here are benign; the next
	// account update retries.
	if _, err := s.RefreshBalance(ctx); err != nil {
		log.Printf("level=warn component=wallet msg=\"initial balance fetch failed\" account_id=%s err=%v", accountID, err)
	}

	log.Printf("level=info component=wallet msg=\"session started\" account_id=%s", accountID)
	return nil
}

// StopSession tears down the active session's subscriptions.
func (s *Service) StopSession() {
	s.stopWatchers()
	s.mu.Lock()
	s.accountID = ""
	s.prevBalance = nil
	s.mu.Unlock()
	log.Println("level=info component=wallet msg=\"session stopped\"")
}

// ActiveAccount returns the session's account id, or "" when none is active.
func (s *Service) ActiveAccount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountID
}

// RefreshBalance fetches the current native balance, feeds it through the
// delta notifier, and returns the new snapshot.
func (s *Service) RefreshBalance(ctx context.Context) (*domain.BalanceSnapshot, error) {
	accountID := s.ActiveAccount()
	if accountID == "" {
		return nil, ErrNoActiveSession
	}

	detail, err := s.ledger.LoadAccount(ctx, accountID)
	if errors.Is(err, horizonclient.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	snapshot := domain.BalanceSnapshot{
		AssetCode:  s.nativeAssetCode,
		ObservedAt: time.Now(),
	}
	for _, line := range detail.Balances {
		if line.AssetType != "native" {
			continue
		}
		minor, parseErr := domain.ParseAmount(line.Balance, s.assetDecimals)
		if parseErr != nil {
			return nil, fmt.Errorf("parse balance: %w", parseErr)
		}
		snapshot.Amount = minor
		break
	}

	s.mu.Lock()
	previous := s.prevBalance
	s.prevBalance = &snapshot
	s.mu.Unlock()

	if draft := s.notifier.Diff(previous, snapshot); draft != nil {
		s.queue.PushDraft(*draft)
	}
	return &snapshot, nil
}

// History lists the account's most recent payments, newest first, normalized
// with the same rules as the inflow watcher.
func (s *Service) History(ctx context.Context, limit int) ([]domain.PaymentEvent, error) {
	accountID := s.ActiveAccount()
	if accountID == "" {
		return nil, ErrNoActiveSession
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	exists, err := s.ledger.AccountExists(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("existence probe: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}

	records, err := s.ledger.FetchPayments(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}

	events := make([]domain.PaymentEvent, 0, len(records))
	for _, record := range records {
		// The operations feed includes non-payment types (account creation,
		// path payments); only plain payments belong in the history view.
		if record.Type != "payment" {
			continue
		}
		events = append(events, NormalizePayment(record, accountID, s.nativeAssetCode))
	}
	return events, nil
}

// ObservedPayments lists locally persisted inbound payments for the active
// account.
func (s *Service) ObservedPayments(ctx context.Context, limit int) ([]domain.PaymentEvent, error) {
	accountID := s.ActiveAccount()
	if accountID == "" {
		return nil, ErrNoActiveSession
	}
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.repo.ListPaymentEvents(ctx, accountID, limit)
}

// SendPayment validates and submits a classic payment. All input problems
// are rejected synchronously, before any network call.
func (s *Service) SendPayment(ctx context.Context, destination, amount, assetCode string) (*horizonclient.SubmitResponse, error) {
	if s.signer == nil {
		return nil, domain.Validationf("no transaction signer is configured")
	}

	source := s.signer.Address()
	if domain.IsContractAddress(source) {
		return nil, domain.Validationf("cannot send payments from a contract address; classic payments require a regular account")
	}
	if !domain.IsRegularAccountID(source) {
		return nil, domain.Validationf("source account is not a valid regular account address")
	}

	if destination == "" {
		return nil, domain.Validationf("destination address is required")
	}
	if domain.IsContractAddress(destination) {
		return nil, domain.Validationf("contract addresses are not supported for payments; use a regular account address")
	}
	if !domain.IsRegularAccountID(destination) {
		return nil, domain.Validationf("invalid destination address format")
	}

	if amount == "" {
		return nil, domain.Validationf("amount is required")
	}
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil || value <= 0 {
		return nil, domain.Validationf("amount must be a positive number")
	}
	if value > s.maxPaymentAmount {
		return nil, domain.Validationf("amount too large")
	}
	if assetCode == "" {
		return nil, domain.Validationf("asset code is required")
	}

	exists, err := s.ledger.AccountExists(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("destination probe: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: destination %s", domain.ErrAccountNotFound, destination)
	}

	envelope, err := s.signer.BuildPayment(ctx, destination, assetCode, amount)
	if err != nil {
		return nil, fmt.Errorf("build payment: %w", err)
	}

	result, err := s.ledger.SubmitTransaction(ctx, envelope)
	if err != nil {
		return nil, fmt.Errorf("submit payment: %w", err)
	}
	log.Printf("level=info component=wallet msg=\"payment submitted\" destination=%s amount=%s asset=%s hash=%s", destination, amount, assetCode, result.Hash)
	return result, nil
}

// ConfigureDeposits wires the deposit orchestrator and the credentials used
// to initiate interactive sessions.
func (s *Service) ConfigureDeposits(deposits *InteractiveDepositOrchestrator, homeDomain string, signer sep24client.ChallengeSigner) {
	s.deposits = deposits
	s.homeDomain = homeDomain
	s.depositSigner = signer
}

// InitiateDeposit starts an interactive deposit to the given destination,
// defaulting to the active account and the native asset.
func (s *Service) InitiateDeposit(ctx context.Context, amount, destination, assetCode string) error {
	if s.deposits == nil {
		return domain.Validationf("deposits are not configured")
	}
	if destination == "" {
		destination = s.ActiveAccount()
	}
	if assetCode == "" {
		assetCode = s.nativeAssetCode
	}
	return s.deposits.Initiate(ctx, amount, destination, assetCode, s.homeDomain, s.depositSigner)
}

// AccountType classifies an arbitrary address string.
func (s *Service) AccountType(address string) domain.AccountType {
	return domain.ClassifyAccountID(address)
}

// onAccountActivity reacts to a change message on the account stream: alert
// the user and refetch the balance so the delta notifier sees it.
func (s *Service) onAccountActivity() {
	s.queue.Push("Account activity detected - refreshing data", domain.SeverityInfo, activityAlertTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := s.RefreshBalance(ctx); err != nil {
		log.Printf("level=warn component=wallet msg=\"balance refresh after account update failed\" err=%v", err)
	}
}

// onPaymentReceived persists the normalized inbound payment best-effort.
// The user-visible notification comes from the balance delta path.
func (s *Service) onPaymentReceived(event domain.PaymentEvent) {
	log.Printf("level=info component=wallet msg=\"payment received\" amount=%s asset=%s from=%s", event.Amount, event.AssetCode, event.Counterparty)

	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.repo.SavePaymentEvent(ctx, s.ActiveAccount(), event); err != nil {
		log.Printf("level=warn component=wallet msg=\"payment persist failed\" payment_id=%s err=%v", event.ID, err)
	}
}

func (s *Service) stopWatchers() {
	s.mu.Lock()
	accountHandle := s.accountHandle
	paymentHandle := s.paymentHandle
	s.accountHandle = nil
	s.paymentHandle = nil
	s.mu.Unlock()

	// Unsubscribe before any new subscription begins so an account switch
	// has no overlap window that could double-deliver.
	if accountHandle != nil {
		accountHandle.Stop()
	}
	if paymentHandle != nil {
		paymentHandle.Stop()
	}
}
