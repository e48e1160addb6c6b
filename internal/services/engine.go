package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"chaindice-backend/internal/metrics"
	"chaindice-backend/internal/models"
)

// Transferer is the settlement side of the engine; satisfied by
// SettlementExecutor.
type Transferer interface {
	Transfer(ctx context.Context, from, to string, amount float64, asset string) (string, error)
}

type SettingsProvider interface {
	Current(ctx context.Context) (WagerSettings, error)
}

// BetEngine drives the bet lifecycle Placed -> RollRequested -> Settled or
// Failed. Placement and roll are separate calls; the engine owns every
// transition in between.
type BetEngine struct {
	store        BetStore
	settings     SettingsProvider
	admission    *AdmissionControl
	reservations *ReservationManager
	oracle       *BalanceOracle
	executor     Transferer
	publisher    EventPublisher
	log          *zap.Logger

	houseWallet string
	asset       string
	staleAfter  time.Duration

	betMu    sync.Mutex
	betLocks map[string]*betLock
}

type betLock struct {
	mu   sync.Mutex
	refs int
}

func NewBetEngine(
	store BetStore,
	settings SettingsProvider,
	admission *AdmissionControl,
	reservations *ReservationManager,
	oracle *BalanceOracle,
	executor Transferer,
	publisher EventPublisher,
	log *zap.Logger,
	houseWallet, asset string,
) *BetEngine {
	return &BetEngine{
		store:        store,
		settings:     settings,
		admission:    admission,
		reservations: reservations,
		oracle:       oracle,
		executor:     executor,
		publisher:    publisher,
		log:          log,
		houseWallet:  houseWallet,
		asset:        asset,
		staleAfter:   10 * time.Minute,
		betLocks:     make(map[string]*betLock),
	}
}

// lockBet serializes all transitions of one bet. Two concurrent rolls must
// never both read Placed and both settle; the second caller waits and then
// sees the terminal state.
func (e *BetEngine) lockBet(betID string) func() {
	e.betMu.Lock()
	l, ok := e.betLocks[betID]
	if !ok {
		l = &betLock{}
		e.betLocks[betID] = l
	}
	l.refs++
	e.betMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.betMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.betLocks, betID)
		}
		e.betMu.Unlock()
	}
}

func deny(reason DenyReason, retryAfter time.Duration) error {
	metrics.AdmissionDenied.WithLabelValues(string(reason)).Inc()
	return &AdmissionError{Reason: reason, RetryAfter: retryAfter}
}

// PlaceBet admits a wager, reserves house liquidity for its worst-case
// payout, commits the server seed and journals the bet. Every denial
// happens before the seed commitment; every failure after the reservation
// releases it.
func (e *BetEngine) PlaceBet(ctx context.Context, wallet string, req *models.PlaceBetRequest) (*models.PlaceBetResponse, error) {
	if err := models.ValidateWalletAddress(wallet); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	settings, err := e.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, deny(DenyDisabled, 0)
	}
	if req.Stake < settings.MinBet || req.Stake > settings.MaxBet {
		return nil, &ValidationError{Msg: fmt.Sprintf("stake must be between %.2f and %.2f", settings.MinBet, settings.MaxBet)}
	}

	chance := WinChance(req.Target, req.Direction)
	if chance <= 0 {
		return nil, &ValidationError{Msg: "bet can never win with this target and direction"}
	}
	multiplier := FairMultiplier(chance, settings.HouseEdgePercent)
	profit := req.Stake * (multiplier - 1)
	if profit > settings.MaxProfit {
		profit = settings.MaxProfit
	}
	if profit < 0 {
		return nil, &ValidationError{Msg: "bet pays below stake; target too likely"}
	}

	betID := models.GenerateBetID()

	decision := e.admission.TryAdmit(wallet, betID, settings.MinBetInterval, settings.MaxBetsPerMinute)
	if !decision.Allowed {
		return nil, deny(decision.Reason, decision.RetryAfter)
	}

	// Admission decides on balances, so no cached reads here.
	playerBalance, err := e.oracle.GetFreshBalance(ctx, wallet, e.asset)
	if err != nil {
		e.admission.Release(wallet, betID)
		return nil, fmt.Errorf("player balance check failed: %w", err)
	}
	if playerBalance < req.Stake {
		e.admission.Release(wallet, betID)
		return nil, deny(DenyInsufficientBalance, 0)
	}

	houseBalance, err := e.oracle.GetFreshBalance(ctx, e.houseWallet, e.asset)
	if err != nil {
		e.admission.Release(wallet, betID)
		return nil, fmt.Errorf("house balance check failed: %w", err)
	}

	potentialPayout := req.Stake + profit
	if !e.reservations.ReserveIfAvailable(betID, potentialPayout, houseBalance) {
		e.admission.Release(wallet, betID)
		return nil, deny(DenyHouseInsufficient, 0)
	}

	serverSeed, commitHash, err := Commit()
	if err != nil {
		e.releasePlacement(wallet, betID)
		return nil, fmt.Errorf("failed to commit server seed: %w", err)
	}

	bet := &models.Bet{
		ID:             betID,
		Wallet:         wallet,
		Asset:          e.asset,
		Stake:          req.Stake,
		Target:         req.Target,
		Direction:      req.Direction,
		WinChance:      chance,
		Multiplier:     multiplier,
		MaxProfit:      profit,
		ClientSeed:     req.ClientSeed,
		ServerSeed:     serverSeed,
		ServerSeedHash: commitHash,
		Status:         models.BetStatusPlaced,
		CreatedAt:      time.Now(),
	}

	// Not durably recorded means not placed: a journal failure undoes
	// everything.
	if err := e.store.Create(ctx, bet); err != nil {
		e.releasePlacement(wallet, betID)
		return nil, fmt.Errorf("failed to journal bet: %w", err)
	}

	metrics.BetsPlaced.Inc()
	metrics.ReservedLiquidity.Set(e.reservations.TotalReserved())
	e.publisher.PublishBetPlaced(ctx, models.BetEvent{
		BetID:  betID,
		Wallet: wallet,
		Stake:  req.Stake,
	})
	e.log.Info("bet placed",
		zap.String("bet_id", betID),
		zap.String("wallet", wallet),
		zap.Float64("stake", req.Stake),
		zap.Float64("potential_payout", potentialPayout),
	)

	return &models.PlaceBetResponse{
		BetID:          betID,
		ServerSeedHash: commitHash,
		WinChance:      chance,
		Multiplier:     multiplier,
		MaxProfit:      profit,
	}, nil
}

func (e *BetEngine) releasePlacement(wallet, betID string) {
	e.reservations.Release(betID)
	e.admission.Release(wallet, betID)
	metrics.ReservedLiquidity.Set(e.reservations.TotalReserved())
}

// Roll reveals the outcome and settles on-chain. Idempotent for a bet that
// already settled: the stored result is returned and no second transfer
// runs.
func (e *BetEngine) Roll(ctx context.Context, wallet string, req *models.RollRequest) (*models.RollResponse, error) {
	unlock := e.lockBet(req.BetID)
	defer unlock()

	bet, err := e.store.Get(ctx, req.BetID)
	if err != nil {
		return nil, err
	}

	if bet.Wallet != wallet {
		return nil, &ValidationError{Msg: "bet belongs to a different wallet"}
	}

	switch bet.Status {
	case models.BetStatusSettled:
		return rollResponse(bet), nil
	case models.BetStatusFailed:
		return nil, fmt.Errorf("bet %s failed: %s", bet.ID, bet.FailReason)
	case models.BetStatusRollRequested:
		return nil, &ValidationError{Msg: "roll already in progress"}
	}

	if req.ClientSeed != bet.ClientSeed {
		return nil, &ValidationError{Msg: "client seed does not match the one supplied at placement"}
	}

	bet.Status = models.BetStatusRollRequested
	if err := e.store.Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to journal roll request: %w", err)
	}

	result, resultHash := Reveal(bet.ClientSeed, bet.ServerSeed)
	bet.Result = result
	bet.ResultHash = resultHash
	bet.Win = CheckOutcome(result, bet.Target, bet.Direction)
	if bet.Win {
		bet.Profit = bet.MaxProfit
	} else {
		bet.Profit = -bet.Stake
	}

	txRef, settleErr := e.settleOnChain(ctx, bet)
	bet.TransferRef = txRef
	bet.SettledAt = time.Now()

	if settleErr != nil {
		bet.Status = models.BetStatusFailed
		bet.FailReason = settleErr.Error()
	} else {
		bet.Status = models.BetStatusSettled
	}

	// Ledger consistency beats caller latency: the terminal state is
	// journaled before anything is reported.
	if err := e.store.Update(ctx, bet); err != nil {
		e.log.Error("failed to journal terminal state; bet left for reconciliation",
			zap.String("bet_id", bet.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to journal settlement: %w", err)
	}

	e.finishBet(ctx, bet)

	if settleErr != nil {
		e.log.Warn("bet settlement failed",
			zap.String("bet_id", bet.ID),
			zap.String("tx_ref", txRef),
			zap.Error(settleErr),
		)
		return nil, fmt.Errorf("settlement failed: %w", settleErr)
	}

	e.log.Info("bet settled",
		zap.String("bet_id", bet.ID),
		zap.Bool("win", bet.Win),
		zap.Float64("profit", bet.Profit),
		zap.String("tx_ref", txRef),
	)
	return rollResponse(bet), nil
}

// settleOnChain moves value for the revealed outcome: house pays the
// capped profit on a win, the player pays the stake on a loss. A win with
// zero capped profit moves nothing.
func (e *BetEngine) settleOnChain(ctx context.Context, bet *models.Bet) (string, error) {
	if bet.Win {
		if bet.MaxProfit <= 0 {
			return "", nil
		}
		return e.executor.Transfer(ctx, e.houseWallet, bet.Wallet, bet.MaxProfit, bet.Asset)
	}
	return e.executor.Transfer(ctx, bet.Wallet, e.houseWallet, bet.Stake, bet.Asset)
}

// finishBet runs the terminal bookkeeping: the reservation is released
// exactly once, caches invalidated and the event published, for Settled
// and Failed alike.
func (e *BetEngine) finishBet(ctx context.Context, bet *models.Bet) {
	e.reservations.Release(bet.ID)
	e.admission.Release(bet.Wallet, bet.ID)
	e.oracle.Invalidate(bet.Wallet)
	e.oracle.Invalidate(e.houseWallet)
	metrics.ReservedLiquidity.Set(e.reservations.TotalReserved())

	outcome := "failed"
	if bet.Status == models.BetStatusSettled {
		if bet.Win {
			outcome = "won"
		} else {
			outcome = "lost"
		}
	}
	metrics.BetsSettled.WithLabelValues(outcome).Inc()

	e.publisher.PublishBetSettled(ctx, models.BetEvent{
		BetID:  bet.ID,
		Wallet: bet.Wallet,
		Stake:  bet.Stake,
		Result: bet.Result,
		Win:    bet.Win,
		Profit: bet.Profit,
	})
}

func rollResponse(bet *models.Bet) *models.RollResponse {
	return &models.RollResponse{
		BetID:       bet.ID,
		Result:      bet.Result,
		ResultHash:  bet.ResultHash,
		ServerSeed:  bet.ServerSeed,
		Win:         bet.Win,
		Profit:      bet.Profit,
		TransferRef: bet.TransferRef,
	}
}

// VerifyBet recomputes a settled bet's outcome from its stored seeds. A
// clean recomputation marks the record verified.
func (e *BetEngine) VerifyBet(ctx context.Context, betID string) (*models.VerifyReport, error) {
	bet, err := e.store.Get(ctx, betID)
	if err != nil {
		return nil, err
	}
	if !bet.Status.IsTerminal() {
		return nil, &ValidationError{Msg: "bet has not settled yet"}
	}

	report := VerifyRoll(bet.ClientSeed, bet.ServerSeed, bet.Target, bet.Direction, bet)

	if bet.Status == models.BetStatusSettled && !bet.Verified &&
		report.CommitmentMatch && report.ResultMatch && report.WinMatch {
		bet.Verified = true
		if err := e.store.Update(ctx, bet); err != nil {
			e.log.Warn("failed to persist verified flag", zap.String("bet_id", betID), zap.Error(err))
		}
	}

	return report, nil
}

// VerifySeeds recomputes an outcome from caller-supplied seeds, without a
// stored bet.
func (e *BetEngine) VerifySeeds(req *models.VerifyRequest) *models.VerifyReport {
	return VerifyRoll(req.ClientSeed, req.ServerSeed, req.Target, req.Direction, nil)
}

func (e *BetEngine) History(ctx context.Context, wallet string, limit int64) ([]*models.Bet, error) {
	return e.store.ListByWallet(ctx, wallet, limit)
}

func (e *BetEngine) RecentBets(ctx context.Context, n int64) ([]*models.Bet, error) {
	return e.store.ListRecent(ctx, n)
}

// ReconcileStale fails bets whose in-memory reservation no longer exists
// (typically after a restart) or that outlived the stale cutoff. The
// ledger is the source of truth; reservations are rebuilt empty, so an
// orphaned bet can never settle and must not stay pending forever.
func (e *BetEngine) ReconcileStale(ctx context.Context) error {
	ids, err := e.store.PendingIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := e.reconcileOne(ctx, id); err != nil {
			e.log.Error("failed to journal reconciled bet", zap.String("bet_id", id), zap.Error(err))
		}
	}
	return nil
}

// reconcileOne holds the bet lock for the whole decision so a roll in
// flight on another goroutine finishes first and is then left alone.
func (e *BetEngine) reconcileOne(ctx context.Context, id string) error {
	unlock := e.lockBet(id)
	defer unlock()

	bet, err := e.store.Get(ctx, id)
	if err != nil {
		e.log.Warn("pending index references unknown bet", zap.String("bet_id", id), zap.Error(err))
		return nil
	}
	if bet.Status.IsTerminal() {
		return nil
	}

	orphaned := !e.reservations.Held(bet.ID)
	expired := time.Since(bet.CreatedAt) > e.staleAfter
	if !orphaned && !expired {
		return nil
	}

	// A non-terminal record never carries a transfer reference: refs are
	// journaled together with the terminal state, and the bet lock keeps
	// this path out of a settlement in flight. Voiding here therefore
	// cannot strand collected value; the diagnostic points operators at
	// the chain history for the crash-between-transfer-and-journal case.
	bet.Status = models.BetStatusFailed
	if orphaned {
		bet.FailReason = "liquidity reservation lost (process restart); bet voided, no settlement journaled; audit chain history for this bet's wallet before refunding"
	} else {
		bet.FailReason = fmt.Sprintf("bet unresolved after %s; voided by reconciler", e.staleAfter)
	}
	bet.SettledAt = time.Now()

	if err := e.store.Update(ctx, bet); err != nil {
		return err
	}

	e.finishBet(ctx, bet)
	e.log.Warn("stale bet reconciled",
		zap.String("bet_id", bet.ID),
		zap.String("reason", bet.FailReason),
	)
	return nil
}

// IsAdmissionError reports whether err is a recoverable denial, for
// transport-layer status mapping.
func IsAdmissionError(err error) (*AdmissionError, bool) {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsValidationError reports whether err is a malformed-request rejection.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
