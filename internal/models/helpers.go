package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateBetID() string {
	return fmt.Sprintf("bet_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateServerSeed() (string, error) {
	bytes := make([]byte, 32) // 256 bits of entropy
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

// ResultMax is the upper bound of the roll range: results land in
// [0, 999999.99] with two-decimal resolution.
const ResultMax = 999999.99

func (r *PlaceBetRequest) Validate() error {
	if r.Stake <= 0 {
		return fmt.Errorf("stake must be positive")
	}
	if r.Target < 0 || r.Target > ResultMax {
		return fmt.Errorf("target must be between 0 and %.2f", ResultMax)
	}
	switch r.Direction {
	case DirectionOver, DirectionUnder:
	default:
		return fmt.Errorf("invalid direction: %s", r.Direction)
	}
	if len(r.ClientSeed) < 8 || len(r.ClientSeed) > 128 {
		return fmt.Errorf("client seed must be 8 to 128 characters")
	}
	return nil
}

const walletAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// ValidateWalletAddress checks the string identity used on the ledger:
// the packed 48-character base64url smart-contract address form.
func ValidateWalletAddress(addr string) error {
	if len(addr) != 48 {
		return fmt.Errorf("wallet address must be 48 characters, got %d", len(addr))
	}
	for _, c := range addr {
		if !strings.ContainsRune(walletAlphabet, c) {
			return fmt.Errorf("wallet address contains invalid character %q", c)
		}
	}
	return nil
}
