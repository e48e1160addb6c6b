package services

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"chaindice-backend/internal/models"
)

func newTestLedger(t *testing.T) (*BetLedger, context.Context) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return NewBetLedger(client), ctx
}

func testBet(id string) *models.Bet {
	return &models.Bet{
		ID:             id,
		Wallet:         "EQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0Xgg99",
		Asset:          "TON",
		Stake:          10,
		Target:         500000,
		Direction:      models.DirectionOver,
		ClientSeed:     "ledger-test-seed",
		ServerSeed:     "aa",
		ServerSeedHash: "bb",
		Status:         models.BetStatusPlaced,
		CreatedAt:      time.Now(),
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	ledger, ctx := newTestLedger(t)

	bet := testBet("bet_ledger_test_roundtrip")
	t.Cleanup(func() { ledger.Delete(ctx, bet) })

	if err := ledger.Create(ctx, bet); err != nil {
		t.Fatalf("failed to create bet: %v", err)
	}

	got, err := ledger.Get(ctx, bet.ID)
	if err != nil {
		t.Fatalf("failed to get bet: %v", err)
	}
	if got.ID != bet.ID || got.Wallet != bet.Wallet || got.Stake != bet.Stake {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.Status != models.BetStatusPlaced {
		t.Errorf("expected placed, got %s", got.Status)
	}

	ids, err := ledger.PendingIDs(ctx)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if !containsID(ids, bet.ID) {
		t.Error("created bet must appear in the pending set")
	}
}

func TestLedgerDuplicateCreateRejected(t *testing.T) {
	ledger, ctx := newTestLedger(t)

	bet := testBet("bet_ledger_test_duplicate")
	t.Cleanup(func() { ledger.Delete(ctx, bet) })

	if err := ledger.Create(ctx, bet); err != nil {
		t.Fatalf("failed to create bet: %v", err)
	}
	if err := ledger.Create(ctx, bet); err == nil {
		t.Error("creating the same bet id twice must fail")
	}
}

func TestLedgerTerminalUpdateLeavesPendingSet(t *testing.T) {
	ledger, ctx := newTestLedger(t)

	bet := testBet("bet_ledger_test_terminal")
	t.Cleanup(func() { ledger.Delete(ctx, bet) })

	if err := ledger.Create(ctx, bet); err != nil {
		t.Fatalf("failed to create bet: %v", err)
	}

	bet.Status = models.BetStatusSettled
	bet.Win = true
	bet.SettledAt = time.Now()
	if err := ledger.Update(ctx, bet); err != nil {
		t.Fatalf("failed to update bet: %v", err)
	}

	// Replaying the same patched record is a no-op, not an error.
	if err := ledger.Update(ctx, bet); err != nil {
		t.Fatalf("replayed update failed: %v", err)
	}

	ids, err := ledger.PendingIDs(ctx)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if containsID(ids, bet.ID) {
		t.Error("settled bet must leave the pending set")
	}

	got, err := ledger.Get(ctx, bet.ID)
	if err != nil {
		t.Fatalf("failed to get bet: %v", err)
	}
	if got.Status != models.BetStatusSettled || !got.Win {
		t.Errorf("terminal state not persisted: %+v", got)
	}
}

func TestLedgerUpdateUnknownBet(t *testing.T) {
	ledger, ctx := newTestLedger(t)

	bet := testBet("bet_ledger_test_missing")
	if err := ledger.Update(ctx, bet); err == nil {
		t.Error("updating an unknown bet must fail")
	}
}

func TestLedgerWalletHistoryOrder(t *testing.T) {
	ledger, ctx := newTestLedger(t)

	older := testBet("bet_ledger_test_older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testBet("bet_ledger_test_newer")
	t.Cleanup(func() {
		ledger.Delete(ctx, older)
		ledger.Delete(ctx, newer)
	})

	if err := ledger.Create(ctx, older); err != nil {
		t.Fatalf("failed to create bet: %v", err)
	}
	if err := ledger.Create(ctx, newer); err != nil {
		t.Fatalf("failed to create bet: %v", err)
	}

	bets, err := ledger.ListByWallet(ctx, older.Wallet, 10)
	if err != nil {
		t.Fatalf("failed to list wallet bets: %v", err)
	}
	if len(bets) < 2 {
		t.Fatalf("expected at least 2 bets, got %d", len(bets))
	}
	if bets[0].ID != newer.ID {
		t.Errorf("history must be newest first, got %s", bets[0].ID)
	}
}

func TestLedgerRateLimit(t *testing.T) {
	ledger, ctx := newTestLedger(t)

	wallet := "EQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0Xgg98"
	t.Cleanup(func() {
		ledger.client.Del(ctx, "ratelimit:"+wallet+":test")
	})

	for i := 0; i < 3; i++ {
		allowed, err := ledger.CheckRateLimit(ctx, wallet, "test", 3, time.Minute)
		if err != nil {
			t.Fatalf("rate limit check failed: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := ledger.CheckRateLimit(ctx, wallet, "test", 3, time.Minute)
	if err != nil {
		t.Fatalf("rate limit check failed: %v", err)
	}
	if allowed {
		t.Error("fourth request should be limited")
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
