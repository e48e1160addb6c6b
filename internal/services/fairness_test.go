package services_test

import (
	"math"
	"testing"

	"chaindice-backend/internal/models"
	"chaindice-backend/internal/services"
)

func TestCommitIsOneWay(t *testing.T) {
	serverSeed, commitHash, err := services.Commit()
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if len(serverSeed) != 64 {
		t.Errorf("expected 64 hex char server seed, got %d", len(serverSeed))
	}
	if len(commitHash) != 64 {
		t.Errorf("expected 64 hex char commitment, got %d", len(commitHash))
	}
	if commitHash == serverSeed {
		t.Error("commitment must not expose the seed")
	}
	if services.CommitmentHash(serverSeed) != commitHash {
		t.Error("commitment should be recomputable from the revealed seed")
	}
}

func TestRevealIsDeterministic(t *testing.T) {
	clientSeed := "player-chosen-seed"
	serverSeed := "a3f1c2d4e5b6978801122334455667788990aabbccddeeff0011223344556677"

	result1, hash1 := services.Reveal(clientSeed, serverSeed)
	result2, hash2 := services.Reveal(clientSeed, serverSeed)

	if result1 != result2 || hash1 != hash2 {
		t.Error("reveal must be deterministic for the same seed pair")
	}
	if result1 < 0 || result1 > models.ResultMax {
		t.Errorf("result %f outside [0, %f]", result1, models.ResultMax)
	}

	// Two decimal resolution: scaling by 100 gives an integer.
	if math.Abs(result1*100-math.Round(result1*100)) > 1e-6 {
		t.Errorf("result %f has more than two decimals", result1)
	}

	result3, _ := services.Reveal("different-seed", serverSeed)
	if result3 == result1 {
		t.Error("different client seeds should produce different results")
	}
}

func TestCheckOutcome(t *testing.T) {
	if !services.CheckOutcome(500001, 500000, models.DirectionOver) {
		t.Error("result above target should win on over")
	}
	if services.CheckOutcome(500000, 500000, models.DirectionOver) {
		t.Error("result equal to target should lose on over")
	}
	if !services.CheckOutcome(499999, 500000, models.DirectionUnder) {
		t.Error("result below target should win on under")
	}
	if services.CheckOutcome(500000, 500000, models.DirectionUnder) {
		t.Error("result equal to target should lose on under")
	}
}

// Stake 100, target 500000, over, 1.5% edge: chance just under 50%,
// multiplier about 1.97.
func TestScenarioOverHalfRange(t *testing.T) {
	chance := services.WinChance(500000, models.DirectionOver)
	if math.Abs(chance-0.49999999) > 1e-9 {
		t.Errorf("expected win chance 0.49999999, got %.8f", chance)
	}

	multiplier := services.FairMultiplier(chance, 1.5)
	if math.Abs(multiplier-1.97) > 0.0001 {
		t.Errorf("expected multiplier about 1.9700, got %.4f", multiplier)
	}
}

func TestWinChanceBounds(t *testing.T) {
	if c := services.WinChance(0, models.DirectionUnder); c != 0 {
		t.Errorf("under 0 can never win, got chance %f", c)
	}
	if c := services.WinChance(models.ResultMax, models.DirectionOver); c != 0 {
		t.Errorf("over the range max can never win, got chance %f", c)
	}
	if m := services.FairMultiplier(0, 1.5); m != 0 {
		t.Errorf("impossible bet should have multiplier 0, got %f", m)
	}

	under := services.WinChance(999999, models.DirectionUnder)
	if under < 0.99 {
		t.Errorf("under near the max should be close to certain, got %f", under)
	}
}

func TestVerifyRollMatchesStoredBet(t *testing.T) {
	serverSeed, commitHash, err := services.Commit()
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	clientSeed := "audit-client-seed"
	result, resultHash := services.Reveal(clientSeed, serverSeed)

	bet := &models.Bet{
		ClientSeed:     clientSeed,
		ServerSeed:     serverSeed,
		ServerSeedHash: commitHash,
		Result:         result,
		ResultHash:     resultHash,
		Target:         300000,
		Direction:      models.DirectionOver,
		Win:            services.CheckOutcome(result, 300000, models.DirectionOver),
	}

	report := services.VerifyRoll(clientSeed, serverSeed, bet.Target, bet.Direction, bet)
	if !report.CommitmentMatch {
		t.Error("commitment should match")
	}
	if !report.ResultMatch {
		t.Error("result should match")
	}
	if !report.WinMatch {
		t.Error("win flag should match")
	}

	// Tampered record: a different stored result must be flagged.
	tampered := *bet
	tampered.Result = result + 1
	report = services.VerifyRoll(clientSeed, serverSeed, bet.Target, bet.Direction, &tampered)
	if report.ResultMatch {
		t.Error("tampered result should not match")
	}
}
