package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chaindice-backend/internal/models"
)

// BetStore is the durable bet ledger. A state transition that is not
// acknowledged by the store must not be treated as having happened.
type BetStore interface {
	Create(ctx context.Context, bet *models.Bet) error
	Get(ctx context.Context, id string) (*models.Bet, error)
	Update(ctx context.Context, bet *models.Bet) error
	ListByWallet(ctx context.Context, wallet string, limit int64) ([]*models.Bet, error)
	ListRecent(ctx context.Context, n int64) ([]*models.Bet, error)
	PendingIDs(ctx context.Context) ([]string, error)
}

type BetLedger struct {
	client *redis.Client
}

func NewBetLedger(client *redis.Client) *BetLedger {
	return &BetLedger{client: client}
}

// Create journals a new bet. The record is written with SETNX so the same
// id can never be created twice, and indexed under the wallet, the recent
// feed and the pending set in one pipeline.
func (l *BetLedger) Create(ctx context.Context, bet *models.Bet) error {
	data, err := json.Marshal(bet)
	if err != nil {
		return fmt.Errorf("failed to marshal bet: %v", err)
	}

	key := fmt.Sprintf(KeyBet, bet.ID)
	ok, err := l.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save bet: %v", err)
	}
	if !ok {
		return fmt.Errorf("bet %s already exists", bet.ID)
	}

	score := float64(bet.CreatedAt.Unix())
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, fmt.Sprintf(KeyWalletBets, bet.Wallet), redis.Z{Score: score, Member: bet.ID})
	pipe.ZRemRangeByRank(ctx, fmt.Sprintf(KeyWalletBets, bet.Wallet), 0, -(MaxWalletHistory + 1))
	pipe.ZAdd(ctx, KeyRecentBets, redis.Z{Score: score, Member: bet.ID})
	pipe.ZRemRangeByRank(ctx, KeyRecentBets, 0, -(MaxRecentBets + 1))
	pipe.SAdd(ctx, KeyPendingSet, bet.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index bet: %v", err)
	}

	return nil
}

func (l *BetLedger) Get(ctx context.Context, id string) (*models.Bet, error) {
	data, err := l.client.Get(ctx, fmt.Sprintf(KeyBet, id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("bet not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %v", err)
	}

	var bet models.Bet
	if err := json.Unmarshal([]byte(data), &bet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bet: %v", err)
	}
	return &bet, nil
}

// Update rewrites the full record. Replaying the same patched record is a
// no-op; a bet that reached a terminal state leaves the pending set.
func (l *BetLedger) Update(ctx context.Context, bet *models.Bet) error {
	if _, err := l.Get(ctx, bet.ID); err != nil {
		return err
	}

	data, err := json.Marshal(bet)
	if err != nil {
		return fmt.Errorf("failed to marshal bet: %v", err)
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(KeyBet, bet.ID), data, 0)
	if bet.Status.IsTerminal() {
		pipe.SRem(ctx, KeyPendingSet, bet.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update bet: %v", err)
	}
	return nil
}

func (l *BetLedger) ListByWallet(ctx context.Context, wallet string, limit int64) ([]*models.Bet, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ids, err := l.client.ZRevRange(ctx, fmt.Sprintf(KeyWalletBets, wallet), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet bets: %v", err)
	}
	return l.bulkGet(ctx, ids)
}

func (l *BetLedger) ListRecent(ctx context.Context, n int64) ([]*models.Bet, error) {
	if n <= 0 || n > MaxRecentBets {
		n = 25
	}

	ids, err := l.client.ZRevRange(ctx, KeyRecentBets, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent bets: %v", err)
	}
	return l.bulkGet(ctx, ids)
}

// PendingIDs lists every bet not yet in a terminal state, for restart
// reconciliation.
func (l *BetLedger) PendingIDs(ctx context.Context) ([]string, error) {
	ids, err := l.client.SMembers(ctx, KeyPendingSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending bets: %v", err)
	}
	return ids, nil
}

func (l *BetLedger) bulkGet(ctx context.Context, ids []string) ([]*models.Bet, error) {
	if len(ids) == 0 {
		return []*models.Bet{}, nil
	}

	pipe := l.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyBet, id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %v", err)
	}

	var bets []*models.Bet
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var bet models.Bet
		if err := json.Unmarshal([]byte(data), &bet); err != nil {
			continue
		}
		bets = append(bets, &bet)
	}
	return bets, nil
}

// Delete removes a bet record and its index entries. Test cleanup only.
func (l *BetLedger) Delete(ctx context.Context, bet *models.Bet) error {
	pipe := l.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(KeyBet, bet.ID))
	pipe.ZRem(ctx, fmt.Sprintf(KeyWalletBets, bet.Wallet), bet.ID)
	pipe.ZRem(ctx, KeyRecentBets, bet.ID)
	pipe.SRem(ctx, KeyPendingSet, bet.ID)
	_, err := pipe.Exec(ctx)
	return err
}

var _ BetStore = (*BetLedger)(nil)

// Ping proves store connectivity; used by the health check.
func (l *BetLedger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return l.client.Ping(ctx).Err()
}

// CheckRateLimit counts requests per wallet and action inside a rolling
// window. Outer transport guard only; the per-wallet wagering rules live in
// AdmissionControl.
func (l *BetLedger) CheckRateLimit(ctx context.Context, wallet, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, wallet, action)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		l.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}
