package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chaindice-backend/internal/chain"
	"chaindice-backend/internal/metrics"
)

// VerificationError means the network reported the transaction confirmed
// but the expected balance delta never appeared. It carries the transaction
// reference so the case can be investigated; it is never retried and never
// upgraded to success.
type VerificationError struct {
	TxRef string
	Msg   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("transfer verification failed (tx %s): %s", e.TxRef, e.Msg)
}

type ExecutorConfig struct {
	MaxRetries      int           // full build-sign-submit cycles after the first
	BackoffBase     time.Duration // doubles per retry
	ConfirmAttempts int
	ConfirmInterval time.Duration
	VerifyAttempts  int
	VerifyInterval  time.Duration
	Tolerance       float64 // acceptable shortfall in the observed delta (network fees)
}

func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxRetries:      3,
		BackoffBase:     time.Second,
		ConfirmAttempts: 10,
		ConfirmInterval: 500 * time.Millisecond,
		VerifyAttempts:  10,
		VerifyInterval:  time.Second,
		Tolerance:       0.05,
	}
}

// SettlementExecutor moves tokens on the external ledger and trusts only an
// observed balance delta as evidence that value moved. "Transaction
// confirmed" on its own is not success.
type SettlementExecutor struct {
	client chain.Client
	keys   chain.KeyStore
	oracle *BalanceOracle
	clock  Clock
	log    *zap.Logger
	cfg    ExecutorConfig
}

func NewSettlementExecutor(client chain.Client, keys chain.KeyStore, oracle *BalanceOracle, clock Clock, log *zap.Logger, cfg ExecutorConfig) *SettlementExecutor {
	return &SettlementExecutor{
		client: client,
		keys:   keys,
		oracle: oracle,
		clock:  clock,
		log:    log,
		cfg:    cfg,
	}
}

// Transfer runs the build-sign-submit-confirm-verify cycle, retrying
// transient failures with increasing backoff. Permanent failures and
// verification failures return immediately.
func (e *SettlementExecutor) Transfer(ctx context.Context, from, to string, amount float64, asset string) (string, error) {
	if amount <= 0 {
		return "", chain.NewError(chain.CodeInvalidRequest, "transfer amount must be positive, got %f", amount)
	}

	var txRef string
	var err error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.TransferRetries.Inc()
			backoff := e.cfg.BackoffBase << (attempt - 1)
			e.log.Warn("retrying transfer",
				zap.String("from", from),
				zap.String("to", to),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			if sleepErr := e.clock.Sleep(ctx, backoff); sleepErr != nil {
				return txRef, sleepErr
			}
		}

		txRef, err = e.attempt(ctx, from, to, amount, asset)
		if err == nil {
			e.oracle.Invalidate(from)
			e.oracle.Invalidate(to)
			return txRef, nil
		}
		// A verification failure means the network confirmed the
		// transaction; re-submitting could move the value twice.
		var verr *VerificationError
		if errors.As(err, &verr) {
			return txRef, err
		}
		if !chain.IsTransient(err) {
			return txRef, err
		}
	}

	return txRef, fmt.Errorf("transfer retry budget exhausted: %w", err)
}

func (e *SettlementExecutor) attempt(ctx context.Context, from, to string, amount float64, asset string) (string, error) {
	// Re-validate the payer immediately before moving funds: registration
	// and balance may have changed since the bet was admitted.
	signer, ok := e.keys.Signer(from)
	if !ok {
		return "", chain.NewError(chain.CodeUnregisteredSigner, "no signing capability for %s", from)
	}

	payerBalance, err := e.oracle.GetFreshBalance(ctx, from, asset)
	if err != nil {
		return "", fmt.Errorf("payer balance check failed: %w", err)
	}
	if payerBalance < amount {
		return "", chain.NewError(chain.CodeInsufficientFunds, "payer %s holds %.2f, needs %.2f", from, payerBalance, amount)
	}

	recipientBefore, err := e.oracle.GetFreshBalance(ctx, to, asset)
	if err != nil {
		return "", fmt.Errorf("recipient baseline read failed: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"from":   from,
		"to":     to,
		"amount": amount,
		"asset":  asset,
		"ts":     e.clock.Now().UnixNano(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build transfer payload: %v", err)
	}

	signature, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("failed to sign transfer: %w", err)
	}

	txRef, err := e.client.SubmitTransfer(ctx, chain.TransferRequest{
		From:      from,
		To:        to,
		Amount:    amount,
		Asset:     asset,
		Payload:   payload,
		Signature: signature,
	})
	if err != nil {
		return "", fmt.Errorf("submit failed: %w", err)
	}

	if err := e.awaitConfirmation(ctx, txRef); err != nil {
		return txRef, err
	}

	if err := e.awaitBalanceDelta(ctx, to, asset, recipientBefore, amount, txRef); err != nil {
		return txRef, err
	}

	e.log.Info("transfer verified",
		zap.String("tx_ref", txRef),
		zap.String("from", from),
		zap.String("to", to),
		zap.Float64("amount", amount),
	)
	return txRef, nil
}

func (e *SettlementExecutor) awaitConfirmation(ctx context.Context, txRef string) error {
	for i := 0; i < e.cfg.ConfirmAttempts; i++ {
		status, err := e.client.ConfirmationStatus(ctx, txRef)
		if err != nil {
			return fmt.Errorf("confirmation poll failed: %w", err)
		}
		switch status {
		case chain.StatusConfirmed:
			return nil
		case chain.StatusRejected:
			return chain.NewError(chain.CodeRejected, "transaction %s rejected by the network", txRef)
		}
		if err := e.clock.Sleep(ctx, e.cfg.ConfirmInterval); err != nil {
			return err
		}
	}
	// Still pending after the attempt budget: treat as a timeout so the
	// whole cycle is retried.
	return chain.NewError(chain.CodeTimeout, "transaction %s unconfirmed after %d polls", txRef, e.cfg.ConfirmAttempts)
}

// awaitBalanceDelta is the independent half of settlement: poll the
// recipient's fresh balance until it grew by at least the expected amount
// within tolerance.
func (e *SettlementExecutor) awaitBalanceDelta(ctx context.Context, to, asset string, before, amount float64, txRef string) error {
	for i := 0; i < e.cfg.VerifyAttempts; i++ {
		observed, err := e.oracle.GetFreshBalance(ctx, to, asset)
		if err == nil && observed-before >= amount-e.cfg.Tolerance {
			return nil
		}
		if err != nil {
			e.log.Warn("balance verification poll failed", zap.String("tx_ref", txRef), zap.Error(err))
		}
		if err := e.clock.Sleep(ctx, e.cfg.VerifyInterval); err != nil {
			return err
		}
	}
	return &VerificationError{
		TxRef: txRef,
		Msg:   fmt.Sprintf("expected balance delta %.2f not observed after %d polls", amount, e.cfg.VerifyAttempts),
	}
}
