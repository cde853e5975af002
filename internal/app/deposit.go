/**
 * @description
 * InteractiveDepositOrchestrator drives the multi-phase interactive deposit
 * protocol. The whole flow is modeled as one explicit phase value plus
 * guarded transition methods, so illegal combinations (polling and failed at
 * once) cannot be represented:
 *
 *   Idle → Initiating → AwaitingInteraction → Completing → Polling → Completed
 *   Failed is reachable from Initiating, AwaitingInteraction, and Polling.
 *
 * The host shell owns the interactive surface (popup window, iframe, deep
 * link) and its closed-detection; the orchestrator only exposes the
 * OnInteractionClosed entry point, which is idempotent and transitions at
 * most once per session. The completion trigger is best-effort: polling is
 * the source of truth for status, so a failed trigger never blocks it.
 *
 * Every transition out of Polling cancels the poll loop, and status results
 * from an already-canceled loop are discarded, so a stale in-flight poll can
 * never resurrect a cleared timeline.
 *
 * @dependencies
 * - github.com/google/uuid: Deposit session identifiers.
 */

package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stellawallet/wallet-service/internal/domain"
	"github.com/stellawallet/wallet-service/pkg/sep24client"
)

// DepositHooks are host-shell side effects the orchestrator fires on phase
// transitions. Any of them may be nil.
type DepositHooks struct {
	// ClearAmountInput resets the deposit amount entry after completion.
	ClearAmountInput func()
	// RefreshBalance invalidates the balance view after completion.
	RefreshBalance func()
	// DismissInteraction closes any modal the host opened for initiation;
	// fired when initiation fails.
	DismissInteraction func()
}

// DepositSnapshot is a consistent read of the orchestrator state.
type DepositSnapshot struct {
	Phase    domain.DepositPhase   `json:"phase"`
	Session  *domain.DepositSession `json:"session,omitempty"`
	Timeline []domain.StatusEvent  `json:"timeline"`
	Failure  string                `json:"failure,omitempty"`
}

// InteractiveDepositOrchestrator coordinates one interactive deposit at a time.
type InteractiveDepositOrchestrator struct {
	sessions     DepositSessionClient
	clock        Clock
	pollInterval time.Duration
	resetDelay   time.Duration
	hooks        DepositHooks
	queue        *NotificationQueue // optional

	mu                 sync.Mutex
	phase              domain.DepositPhase
	session            *domain.DepositSession
	timeline           []domain.StatusEvent
	failure            string
	interactionHandled bool
	generation         uint64
	pollCancel         context.CancelFunc
	resetTimer         Timer
}

// NewInteractiveDepositOrchestrator creates an orchestrator in the Idle phase.
func NewInteractiveDepositOrchestrator(sessions DepositSessionClient, clock Clock, pollInterval, resetDelay time.Duration, hooks DepositHooks, queue *NotificationQueue) *InteractiveDepositOrchestrator {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if resetDelay <= 0 {
		resetDelay = 10 * time.Second
	}
	return &InteractiveDepositOrchestrator{
		sessions:     sessions,
		clock:        clock,
		pollInterval: pollInterval,
		resetDelay:   resetDelay,
		hooks:        hooks,
		queue:        queue,
		phase:        domain.PhaseIdle,
	}
}

// Initiate opens a new interactive session. Missing parameters fail the
// request before any network call; initiation errors dismiss the host's
// interaction surface and land in Failed. Only one deposit runs at a time.
func (o *InteractiveDepositOrchestrator) Initiate(ctx context.Context, amount, destination, assetCode, homeDomain string, signer sep24client.ChallengeSigner) error {
	o.mu.Lock()
	switch o.phase {
	case domain.PhaseInitiating, domain.PhaseAwaitingInteraction, domain.PhaseCompleting, domain.PhasePolling:
		o.mu.Unlock()
		return domain.Validationf("a deposit is already in progress")
	}
	o.generation++
	gen := o.generation
	o.phase = domain.PhaseInitiating
	o.session = nil
	o.timeline = nil
	o.failure = ""
	o.interactionHandled = false
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
	o.mu.Unlock()

	if amount == "" || destination == "" || assetCode == "" || homeDomain == "" || signer == nil {
		err := domain.Validationf("amount, destination, asset code, home domain, and signer are all required")
		o.fail(gen, err.Error())
		return err
	}

	session, err := o.sessions.InitiateInteractiveSession(ctx, sep24client.InitiateParams{
		Amount:     amount,
		Address:    destination,
		AssetCode:  assetCode,
		HomeDomain: homeDomain,
		Signer:     signer,
	})
	if err != nil {
		log.Printf("level=warn component=deposit msg=\"session initiation failed\" err=%v", err)
		o.fail(gen, "deposit initiation failed")
		return domain.Protocolf("initiate session: %v", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != gen || o.phase != domain.PhaseInitiating {
		return nil
	}
	o.session = &domain.DepositSession{
		ID:                uuid.New().String(),
		InteractiveURL:    session.InteractiveURL,
		TransferServerURL: session.TransferServerURL,
		AuthToken:         session.AuthToken,
		TransactionID:     session.TransactionID,
		CreatedAt:         o.clock.Now(),
	}
	o.phase = domain.PhaseAwaitingInteraction
	return nil
}

// OnInteractionClosed is called by the host shell when the interactive
// surface is detected as closed. It is idempotent: the first call moves the
// session to Completing and starts the completion/polling pipeline, any
// further call is a no-op.
func (o *InteractiveDepositOrchestrator) OnInteractionClosed() {
	o.mu.Lock()
	if o.phase != domain.PhaseAwaitingInteraction || o.interactionHandled || o.session == nil {
		o.mu.Unlock()
		return
	}
	o.interactionHandled = true
	o.phase = domain.PhaseCompleting
	gen := o.generation
	session := *o.session
	o.mu.Unlock()

	go o.completeAndPoll(gen, session)
}

// Cancel aborts an in-flight deposit. It is a no-op outside active phases.
func (o *InteractiveDepositOrchestrator) Cancel() bool {
	o.mu.Lock()
	switch o.phase {
	case domain.PhaseAwaitingInteraction, domain.PhaseCompleting, domain.PhasePolling:
	default:
		o.mu.Unlock()
		return false
	}
	gen := o.generation
	o.mu.Unlock()

	o.fail(gen, "deposit canceled")
	return true
}

// Snapshot returns a copy of the current phase, session, and timeline.
func (o *InteractiveDepositOrchestrator) Snapshot() DepositSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := DepositSnapshot{
		Phase:   o.phase,
		Failure: o.failure,
	}
	if o.session != nil {
		session := *o.session
		snapshot.Session = &session
	}
	if len(o.timeline) > 0 {
		snapshot.Timeline = append([]domain.StatusEvent(nil), o.timeline...)
	}
	return snapshot
}

// completeAndPoll fires the best-effort completion trigger and then runs the
// status poll loop until a terminal status or cancellation.
func (o *InteractiveDepositOrchestrator) completeAndPoll(gen uint64, session domain.DepositSession) {
	triggerCtx, cancelTrigger := context.WithTimeout(context.Background(), 15*time.Second)
	if err := o.sessions.TriggerCompletion(triggerCtx, session.InteractiveURL); err != nil {
		// Best-effort: polling is the source of truth for status.
		log.Printf("level=warn component=deposit msg=\"completion trigger failed (continuing to poll)\" transaction_id=%s err=%v", session.TransactionID, err)
	}
	cancelTrigger()

	pollCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	if o.generation != gen || o.phase != domain.PhaseCompleting {
		o.mu.Unlock()
		cancel()
		return
	}
	o.phase = domain.PhasePolling
	o.pollCancel = cancel
	o.mu.Unlock()

	for {
		result, err := o.sessions.PollStatus(pollCtx, session.TransferServerURL, session.TransactionID, session.AuthToken)
		if pollCtx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, sep24client.ErrTokenExpired) {
				o.fail(gen, "deposit session expired")
				return
			}
			// Transient poll failures are recovered locally; the next tick
			// re-queries.
			log.Printf("level=warn component=deposit msg=\"status poll failed\" transaction_id=%s err=%v", session.TransactionID, err)
		} else if done := o.applyStatus(gen, result.Status, result.Message); done {
			return
		}

		select {
		case <-pollCtx.Done():
			return
		case <-time.After(o.pollInterval):
		}
	}
}

// applyStatus records one poll observation and performs terminal transitions.
// It returns true when polling must stop.
func (o *InteractiveDepositOrchestrator) applyStatus(gen uint64, status, message string) bool {
	o.mu.Lock()
	if o.generation != gen || o.phase != domain.PhasePolling {
		o.mu.Unlock()
		return true
	}
	o.timeline = AppendStatus(o.timeline, status, message)

	if status == domain.StatusCompleted {
		o.phase = domain.PhaseCompleted
		o.stopPollingLocked()
		o.resetTimer = o.clock.AfterFunc(o.resetDelay, func() { o.resetAfterDisplay(gen) })
		o.mu.Unlock()

		if o.hooks.ClearAmountInput != nil {
			o.hooks.ClearAmountInput()
		}
		if o.hooks.RefreshBalance != nil {
			o.hooks.RefreshBalance()
		}
		if o.queue != nil {
			o.queue.Push("Deposit completed", domain.SeveritySuccess, 0)
		}
		return true
	}

	if isTerminalFailureStatus(status) {
		o.mu.Unlock()
		o.fail(gen, "deposit failed: "+SnakeToTitleCase(status))
		return true
	}

	o.mu.Unlock()
	return false
}

// fail transitions the given session generation to Failed, stopping any poll
// loop. Already-terminal sessions are left untouched.
func (o *InteractiveDepositOrchestrator) fail(gen uint64, reason string) {
	o.mu.Lock()
	if o.generation != gen || o.phase == domain.PhaseCompleted || o.phase == domain.PhaseFailed {
		o.mu.Unlock()
		return
	}
	fromInitiating := o.phase == domain.PhaseInitiating
	o.phase = domain.PhaseFailed
	o.failure = reason
	o.session = nil
	o.stopPollingLocked()
	o.mu.Unlock()

	if fromInitiating && o.hooks.DismissInteraction != nil {
		o.hooks.DismissInteraction()
	}
	if o.queue != nil {
		o.queue.Push(reason, domain.SeverityError, 0)
	}
}

// resetAfterDisplay clears the completed deposit's timeline after the display
// window has elapsed.
func (o *InteractiveDepositOrchestrator) resetAfterDisplay(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != gen || o.phase != domain.PhaseCompleted {
		return
	}
	o.phase = domain.PhaseIdle
	o.session = nil
	o.timeline = nil
	o.failure = ""
	o.interactionHandled = false
	o.resetTimer = nil
}

func (o *InteractiveDepositOrchestrator) stopPollingLocked() {
	if o.pollCancel != nil {
		o.pollCancel()
		o.pollCancel = nil
	}
}

// isTerminalFailureStatus reports whether a wire status ends the deposit
// unsuccessfully. Unknown statuses are treated as intermediate.
func isTerminalFailureStatus(status string) bool {
	switch status {
	case domain.StatusError, "no_market", "too_small", "too_large", "expired", "refunded":
		return true
	}
	return false
}
