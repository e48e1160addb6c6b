package services

import (
	"fmt"
	"sync"
	"time"
)

type DenyReason string

const (
	DenyPendingBet  DenyReason = "pending_bet_exists"
	DenyTooSoon     DenyReason = "too_soon"
	DenyRateLimited DenyReason = "rate_limited"

	// Engine-level denials, surfaced with the same machinery.
	DenyDisabled            DenyReason = "wagering_disabled"
	DenyInsufficientBalance DenyReason = "insufficient_balance"
	DenyHouseInsufficient   DenyReason = "house_insufficient"
)

// AdmissionError is a denial carried as an error across the engine
// boundary. Fully recoverable: the caller may retry later.
type AdmissionError struct {
	Reason     DenyReason
	RetryAfter time.Duration
}

func (e *AdmissionError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("admission denied (%s): retry in %s", e.Reason, e.RetryAfter.Round(time.Millisecond))
	}
	return fmt.Sprintf("admission denied (%s)", e.Reason)
}

// ValidationError rejects a malformed request synchronously, before any
// state mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// AdmissionDecision is an ordinary result value, not an error: denials are
// an expected outcome of the gate.
type AdmissionDecision struct {
	Allowed    bool
	Reason     DenyReason
	RetryAfter time.Duration
}

type walletState struct {
	pendingBet  string
	lastBetAt   time.Time
	windowCount int
	windowReset time.Time
}

// AdmissionControl gates bet placement per wallet: at most one outstanding
// bet, a minimum spacing between bets and a rolling one-minute cap. The
// check and the state update happen under one lock hold so two concurrent
// requests can never both pass.
type AdmissionControl struct {
	mu      sync.Mutex
	wallets map[string]*walletState
	now     func() time.Time
}

func NewAdmissionControl() *AdmissionControl {
	return &AdmissionControl{
		wallets: make(map[string]*walletState),
		now:     time.Now,
	}
}

// TryAdmit applies the three rules in order and records the admission
// atomically on success, marking betID as the wallet's outstanding bet.
func (a *AdmissionControl) TryAdmit(wallet, betID string, minInterval time.Duration, maxPerMinute int) AdmissionDecision {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	st, ok := a.wallets[wallet]
	if !ok {
		st = &walletState{}
		a.wallets[wallet] = st
	}

	if st.pendingBet != "" {
		return AdmissionDecision{Allowed: false, Reason: DenyPendingBet}
	}

	if !st.lastBetAt.IsZero() {
		if elapsed := now.Sub(st.lastBetAt); elapsed < minInterval {
			return AdmissionDecision{
				Allowed:    false,
				Reason:     DenyTooSoon,
				RetryAfter: minInterval - elapsed,
			}
		}
	}

	if now.After(st.windowReset) {
		st.windowCount = 0
		st.windowReset = now.Add(time.Minute)
	}
	if maxPerMinute > 0 && st.windowCount >= maxPerMinute {
		return AdmissionDecision{
			Allowed:    false,
			Reason:     DenyRateLimited,
			RetryAfter: st.windowReset.Sub(now),
		}
	}

	st.pendingBet = betID
	st.lastBetAt = now
	st.windowCount++
	return AdmissionDecision{Allowed: true}
}

// Release clears the wallet's outstanding bet once it reaches a terminal
// state. Releasing a bet that is not the pending one is a no-op, so error
// paths can call it unconditionally.
func (a *AdmissionControl) Release(wallet, betID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st, ok := a.wallets[wallet]; ok && st.pendingBet == betID {
		st.pendingBet = ""
	}
}

// PendingBet reports the wallet's outstanding bet id, if any.
func (a *AdmissionControl) PendingBet(wallet string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.wallets[wallet]
	if !ok || st.pendingBet == "" {
		return "", false
	}
	return st.pendingBet, true
}
