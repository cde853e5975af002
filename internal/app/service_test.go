package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stellawallet/wallet-service/internal/domain"
	"github.com/stellawallet/wallet-service/pkg/horizonclient"
)

const testContract = "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC"

type stubSignerWithPayments struct {
	stubSigner
	envelope string
	buildErr error
}

func (s *stubSignerWithPayments) BuildPayment(ctx context.Context, destination, assetCode, amount string) (string, error) {
	if s.buildErr != nil {
		return "", s.buildErr
	}
	return s.envelope, nil
}

func newTestService(ledger LedgerClient, signer TransactionSigner, queue *NotificationQueue) *Service {
	if queue == nil {
		queue = NewNotificationQueue(newFakeClock(), time.Minute, nil)
	}
	return NewService(
		ledger,
		NewAccountChangeWatcher(ledger),
		NewPaymentInflowWatcher(ledger, nil, "XLM"),
		NewBalanceDeltaNotifier(0),
		queue,
		nil,
		signer,
		"XLM",
		0,
		1000000,
	)
}

func balanceDetail(amount string) *horizonclient.AccountDetail {
	return &horizonclient.AccountDetail{
		Balances: []horizonclient.AccountBalance{
			{Balance: amount, AssetType: "native"},
		},
	}
}

func TestStartSession_RejectsInvalidAccount(t *testing.T) {
	s := newTestService(&stubLedger{}, nil, nil)
	err := s.StartSession(context.Background(), "not-an-address")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRefreshBalance_DeltaSequence(t *testing.T) {
	balance := "100"
	ledger := &stubLedger{
		loadAccount: func(ctx context.Context, accountID string) (*horizonclient.AccountDetail, error) {
			return balanceDetail(balance), nil
		},
	}
	queue := NewNotificationQueue(newFakeClock(), time.Minute, nil)
	s := newTestService(ledger, nil, queue)

	if err := s.StartSession(context.Background(), testAccount); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	// The session-start observation is the baseline; no delta yet.
	if got := len(queue.Active()); got != 0 {
		t.Fatalf("expected no notifications from the baseline, got %d", got)
	}

	balance = "150"
	if _, err := s.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}
	active := queue.Active()
	if len(active) != 1 || active[0].Message != "Received 50 XLM" {
		t.Fatalf("expected exactly one received notification, got %+v", active)
	}

	balance = "130"
	if _, err := s.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}
	active = queue.Active()
	if len(active) != 2 || active[1].Message != "Sent 20 XLM" {
		t.Fatalf("expected a sent notification, got %+v", active)
	}

	// Unchanged balance produces nothing new.
	if _, err := s.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}
	if got := len(queue.Active()); got != 2 {
		t.Fatalf("expected no notification for unchanged balance, got %d", got)
	}
}

func TestRefreshBalance_RequiresSession(t *testing.T) {
	s := newTestService(&stubLedger{}, nil, nil)
	if _, err := s.RefreshBalance(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestStartSession_SwitchResetsBaseline(t *testing.T) {
	ledger := &stubLedger{
		loadAccount: func(ctx context.Context, accountID string) (*horizonclient.AccountDetail, error) {
			if accountID == testAccount {
				return balanceDetail("100"), nil
			}
			return balanceDetail("999"), nil
		},
	}
	queue := NewNotificationQueue(newFakeClock(), time.Minute, nil)
	s := newTestService(ledger, nil, queue)

	if err := s.StartSession(context.Background(), testAccount); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := s.StartSession(context.Background(), otherTestAccount); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// The new account's very different balance must not read as a delta.
	if got := len(queue.Active()); got != 0 {
		t.Fatalf("expected no delta notifications across an account switch, got %d", got)
	}
}

func TestHistory_FiltersNonPayments(t *testing.T) {
	ledger := &stubLedger{
		fetchPayments: func(ctx context.Context, accountID string, limit int) ([]horizonclient.PaymentRecord, error) {
			return []horizonclient.PaymentRecord{
				{ID: "1", Type: "create_account", To: accountID},
				{ID: "2", Type: "payment", From: otherTestAccount, To: accountID, Amount: "50", AssetType: "native", CreatedAt: "2024-06-01T12:00:00Z"},
				{ID: "3", Type: "path_payment_strict_send", To: accountID},
			}, nil
		},
	}
	s := newTestService(ledger, nil, nil)
	if err := s.StartSession(context.Background(), testAccount); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	events, err := s.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) != 1 || events[0].ID != "2" {
		t.Fatalf("expected only the plain payment, got %+v", events)
	}
	if events[0].AssetCode != "XLM" {
		t.Fatalf("expected native asset normalized to XLM, got %q", events[0].AssetCode)
	}
}

func TestHistory_MissingAccount(t *testing.T) {
	exists := true
	ledger := &stubLedger{
		accountExists: func(ctx context.Context, accountID string) (bool, error) {
			return exists, nil
		},
	}
	s := newTestService(ledger, nil, nil)
	if err := s.StartSession(context.Background(), testAccount); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	exists = false
	if _, err := s.History(context.Background(), 10); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSendPayment_ValidationChain(t *testing.T) {
	signer := &stubSignerWithPayments{stubSigner: stubSigner{address: testAccount}, envelope: "AAAA...xdr"}
	submitted := false
	ledger := &stubLedger{
		submit: func(ctx context.Context, envelopeXDR string) (*horizonclient.SubmitResponse, error) {
			submitted = true
			return &horizonclient.SubmitResponse{Hash: "abc123"}, nil
		},
	}
	s := newTestService(ledger, signer, nil)

	cases := []struct {
		name        string
		destination string
		amount      string
		assetCode   string
	}{
		{"empty destination", "", "10", "XLM"},
		{"contract destination", testContract, "10", "XLM"},
		{"malformed destination", "GABC", "10", "XLM"},
		{"empty amount", otherTestAccount, "", "XLM"},
		{"non-numeric amount", otherTestAccount, "ten", "XLM"},
		{"zero amount", otherTestAccount, "0", "XLM"},
		{"negative amount", otherTestAccount, "-5", "XLM"},
		{"excessive amount", otherTestAccount, "2000000", "XLM"},
		{"empty asset code", otherTestAccount, "10", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.SendPayment(context.Background(), tc.destination, tc.amount, tc.assetCode)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if submitted {
		t.Fatal("expected no submission for invalid input")
	}
}

func TestSendPayment_RequiresSigner(t *testing.T) {
	s := newTestService(&stubLedger{}, nil, nil)
	_, err := s.SendPayment(context.Background(), otherTestAccount, "10", "XLM")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error without a signer, got %v", err)
	}
}

func TestSendPayment_MissingDestinationAccount(t *testing.T) {
	signer := &stubSignerWithPayments{stubSigner: stubSigner{address: testAccount}, envelope: "xdr"}
	ledger := &stubLedger{
		accountExists: func(ctx context.Context, accountID string) (bool, error) {
			return false, nil
		},
	}
	s := newTestService(ledger, signer, nil)

	_, err := s.SendPayment(context.Background(), otherTestAccount, "10", "XLM")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for unfunded destination, got %v", err)
	}
}

func TestSendPayment_SubmitsEnvelope(t *testing.T) {
	signer := &stubSignerWithPayments{stubSigner: stubSigner{address: testAccount}, envelope: "AAAA...xdr"}
	var submittedXDR string
	ledger := &stubLedger{
		submit: func(ctx context.Context, envelopeXDR string) (*horizonclient.SubmitResponse, error) {
			submittedXDR = envelopeXDR
			return &horizonclient.SubmitResponse{Hash: "abc123", Ledger: 42}, nil
		},
	}
	s := newTestService(ledger, signer, nil)

	result, err := s.SendPayment(context.Background(), otherTestAccount, "10", "XLM")
	if err != nil {
		t.Fatalf("SendPayment: %v", err)
	}
	if submittedXDR != "AAAA...xdr" {
		t.Fatalf("expected signer envelope to be submitted, got %q", submittedXDR)
	}
	if result.Hash != "abc123" {
		t.Fatalf("unexpected submit result %+v", result)
	}
}

func TestObservedPayments_DisabledWithoutRepository(t *testing.T) {
	s := newTestService(&stubLedger{}, nil, nil)
	if err := s.StartSession(context.Background(), testAccount); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := s.ObservedPayments(context.Background(), 10); !errors.Is(err, ErrPersistenceDisabled) {
		t.Fatalf("expected ErrPersistenceDisabled, got %v", err)
	}
}

func TestAccountActivity_PushesAlertAndRefreshes(t *testing.T) {
	var deliverUpdate func()
	balance := "100"
	ledger := &stubLedger{
		loadAccount: func(ctx context.Context, accountID string) (*horizonclient.AccountDetail, error) {
			return balanceDetail(balance), nil
		},
		streamAccount: func(ctx context.Context, accountID string, onMessage func(), onError func(error)) horizonclient.StopFunc {
			deliverUpdate = onMessage
			return func() {}
		},
	}
	queue := NewNotificationQueue(newFakeClock(), time.Minute, nil)
	s := newTestService(ledger, nil, queue)

	if err := s.StartSession(context.Background(), testAccount); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	balance = "150"
	deliverUpdate()

	var sawActivity, sawDelta bool
	for _, n := range queue.Active() {
		switch n.Message {
		case "Account activity detected - refreshing data":
			sawActivity = true
		case "Received 50 XLM":
			sawDelta = true
		}
	}
	if !sawActivity || !sawDelta {
		t.Fatalf("expected activity alert and balance delta, got %+v", queue.Active())
	}
}
