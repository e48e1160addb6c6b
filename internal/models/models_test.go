package models_test

import (
	"strings"
	"testing"

	"chaindice-backend/internal/models"
)

func TestGenerateBetID(t *testing.T) {
	id := models.GenerateBetID()
	if id == "" {
		t.Error("bet ID should not be empty")
	}
	if !strings.HasPrefix(id, "bet_") {
		t.Errorf("bet ID should start with bet_, got %s", id)
	}

	if id == models.GenerateBetID() {
		t.Error("consecutive bet IDs should differ")
	}
}

func TestGenerateServerSeed(t *testing.T) {
	seed, err := models.GenerateServerSeed()
	if err != nil {
		t.Fatalf("failed to generate server seed: %v", err)
	}
	if len(seed) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(seed))
	}

	other, _ := models.GenerateServerSeed()
	if seed == other {
		t.Error("server seeds should not repeat")
	}
}

func TestPlaceBetRequestValidate(t *testing.T) {
	valid := &models.PlaceBetRequest{
		Stake:      100,
		Target:     500000,
		Direction:  models.DirectionOver,
		ClientSeed: "deadbeefcafe",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request failed validation: %v", err)
	}

	bad := &models.PlaceBetRequest{
		Stake:      0,
		Target:     500000,
		Direction:  models.DirectionOver,
		ClientSeed: "deadbeefcafe",
	}
	if err := bad.Validate(); err == nil {
		t.Error("zero stake should fail validation")
	}

	bad = &models.PlaceBetRequest{
		Stake:      100,
		Target:     1000001,
		Direction:  models.DirectionUnder,
		ClientSeed: "deadbeefcafe",
	}
	if err := bad.Validate(); err == nil {
		t.Error("target above range should fail validation")
	}

	bad = &models.PlaceBetRequest{
		Stake:      100,
		Target:     500000,
		Direction:  "sideways",
		ClientSeed: "deadbeefcafe",
	}
	if err := bad.Validate(); err == nil {
		t.Error("invalid direction should fail validation")
	}

	bad = &models.PlaceBetRequest{
		Stake:      100,
		Target:     500000,
		Direction:  models.DirectionOver,
		ClientSeed: "short",
	}
	if err := bad.Validate(); err == nil {
		t.Error("short client seed should fail validation")
	}
}

func TestValidateWalletAddress(t *testing.T) {
	good := "EQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0XggGG"
	if err := models.ValidateWalletAddress(good); err != nil {
		t.Errorf("valid address rejected: %v", err)
	}

	if err := models.ValidateWalletAddress("too-short"); err == nil {
		t.Error("short address should be rejected")
	}

	withSpace := good[:47] + " "
	if err := models.ValidateWalletAddress(withSpace); err == nil {
		t.Error("address with invalid character should be rejected")
	}
}

func TestPotentialPayout(t *testing.T) {
	bet := &models.Bet{Stake: 100, MaxProfit: 97}
	if got := bet.PotentialPayout(); got != 197 {
		t.Errorf("expected potential payout 197, got %f", got)
	}
}

func TestBetStatusIsTerminal(t *testing.T) {
	if models.BetStatusPlaced.IsTerminal() {
		t.Error("placed should not be terminal")
	}
	if models.BetStatusRollRequested.IsTerminal() {
		t.Error("roll_requested should not be terminal")
	}
	if !models.BetStatusSettled.IsTerminal() {
		t.Error("settled should be terminal")
	}
	if !models.BetStatusFailed.IsTerminal() {
		t.Error("failed should be terminal")
	}
}
