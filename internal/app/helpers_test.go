package app

import (
	"context"
	"sync"
	"time"

	"github.com/stellawallet/wallet-service/internal/domain"
	"github.com/stellawallet/wallet-service/pkg/horizonclient"
	"github.com/stellawallet/wallet-service/pkg/sep24client"
)

const (
	testAccount      = "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"
	otherTestAccount = "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"
)

// stubLedger implements LedgerClient with overridable behavior per test.
// Unset fields get benign defaults: the account exists, streams are inert.
type stubLedger struct {
	loadAccount    func(ctx context.Context, accountID string) (*horizonclient.AccountDetail, error)
	accountExists  func(ctx context.Context, accountID string) (bool, error)
	fetchPayments  func(ctx context.Context, accountID string, limit int) ([]horizonclient.PaymentRecord, error)
	submit         func(ctx context.Context, envelopeXDR string) (*horizonclient.SubmitResponse, error)
	streamAccount  func(ctx context.Context, accountID string, onMessage func(), onError func(error)) horizonclient.StopFunc
	streamPayments func(ctx context.Context, accountID, cursor string, onMessage func(horizonclient.PaymentRecord), onError func(error)) horizonclient.StopFunc
}

func (s *stubLedger) LoadAccount(ctx context.Context, accountID string) (*horizonclient.AccountDetail, error) {
	if s.loadAccount != nil {
		return s.loadAccount(ctx, accountID)
	}
	return &horizonclient.AccountDetail{ID: accountID}, nil
}

func (s *stubLedger) AccountExists(ctx context.Context, accountID string) (bool, error) {
	if s.accountExists != nil {
		return s.accountExists(ctx, accountID)
	}
	return true, nil
}

func (s *stubLedger) FetchPayments(ctx context.Context, accountID string, limit int) ([]horizonclient.PaymentRecord, error) {
	if s.fetchPayments != nil {
		return s.fetchPayments(ctx, accountID, limit)
	}
	return nil, nil
}

func (s *stubLedger) SubmitTransaction(ctx context.Context, envelopeXDR string) (*horizonclient.SubmitResponse, error) {
	if s.submit != nil {
		return s.submit(ctx, envelopeXDR)
	}
	return &horizonclient.SubmitResponse{Hash: "stub-hash"}, nil
}

func (s *stubLedger) StreamAccount(ctx context.Context, accountID string, onMessage func(), onError func(error)) horizonclient.StopFunc {
	if s.streamAccount != nil {
		return s.streamAccount(ctx, accountID, onMessage, onError)
	}
	return func() {}
}

func (s *stubLedger) StreamPayments(ctx context.Context, accountID, cursor string, onMessage func(horizonclient.PaymentRecord), onError func(error)) horizonclient.StopFunc {
	if s.streamPayments != nil {
		return s.streamPayments(ctx, accountID, cursor, onMessage, onError)
	}
	return func() {}
}

// stubSessions implements DepositSessionClient.
type stubSessions struct {
	initiate func(ctx context.Context, p sep24client.InitiateParams) (*sep24client.Session, error)
	trigger  func(ctx context.Context, interactiveURL string) error
	poll     func(ctx context.Context, transferServerURL, transactionID, authToken string) (*sep24client.StatusResult, error)
}

func (s *stubSessions) InitiateInteractiveSession(ctx context.Context, p sep24client.InitiateParams) (*sep24client.Session, error) {
	if s.initiate != nil {
		return s.initiate(ctx, p)
	}
	return &sep24client.Session{
		InteractiveURL:    "https://anchor.example/interactive",
		TransferServerURL: "https://anchor.example/sep24",
		AuthToken:         "token",
		TransactionID:     "tx-1",
	}, nil
}

func (s *stubSessions) TriggerCompletion(ctx context.Context, interactiveURL string) error {
	if s.trigger != nil {
		return s.trigger(ctx, interactiveURL)
	}
	return nil
}

func (s *stubSessions) PollStatus(ctx context.Context, transferServerURL, transactionID, authToken string) (*sep24client.StatusResult, error) {
	if s.poll != nil {
		return s.poll(ctx, transferServerURL, transactionID, authToken)
	}
	return &sep24client.StatusResult{Status: domain.StatusIncomplete}, nil
}

// stubSigner implements sep24client.ChallengeSigner.
type stubSigner struct{ address string }

func (s *stubSigner) Address() string { return s.address }

func (s *stubSigner) SignChallenge(ctx context.Context, challengeXDR string) (string, error) {
	return challengeXDR + "+signed", nil
}

// memoryCursorStore implements CursorStore in memory.
type memoryCursorStore struct {
	mu      sync.Mutex
	cursors map[string]string
}

func newMemoryCursorStore() *memoryCursorStore {
	return &memoryCursorStore{cursors: make(map[string]string)}
}

func (m *memoryCursorStore) Load(ctx context.Context, accountID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[accountID], nil
}

func (m *memoryCursorStore) Save(ctx context.Context, accountID, cursor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[accountID] = cursor
	return nil
}

// fakeClock is a manually advanced clock for TTL and reset-delay tests.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires timers that came due, in
// registration order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.when.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
