package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"math/big"

	"chaindice-backend/internal/models"
)

// The roll range has two-decimal resolution over [0, 999999.99], so there
// are 10^8 equally likely outcomes per reveal.
const resultOutcomes = 100_000_000

// Commit generates the server seed and its commitment. The commitment is
// published to the caller before the client seed combination is known and
// the seed is never regenerated for a bet afterwards.
func Commit() (serverSeed, commitHash string, err error) {
	serverSeed, err = models.GenerateServerSeed()
	if err != nil {
		return "", "", err
	}
	return serverSeed, CommitmentHash(serverSeed), nil
}

func CommitmentHash(serverSeed string) string {
	hash := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(hash[:])
}

// Reveal derives the roll from both seeds: HMAC-SHA256 of the client seed
// keyed by the server seed, first 10 hex chars as an integer, mapped by
// modulo-and-scale onto the result range. Reproducible by any third party
// holding the two seeds.
func Reveal(clientSeed, serverSeed string) (result float64, resultHash string) {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(clientSeed))
	resultHash = hex.EncodeToString(h.Sum(nil))

	n := new(big.Int)
	n.SetString(resultHash[:10], 16)

	hundredths := n.Int64() % resultOutcomes
	return float64(hundredths) / 100.0, resultHash
}

// CheckOutcome applies the win condition: over wins strictly above the
// target, under wins strictly below it.
func CheckOutcome(result, target float64, direction models.Direction) bool {
	if direction == models.DirectionOver {
		return result > target
	}
	return result < target
}

// WinChance is the exact probability of the win condition, counting
// favorable hundredths over the full outcome space.
func WinChance(target float64, direction models.Direction) float64 {
	targetHundredths := int64(math.Round(target * 100))
	if targetHundredths < 0 {
		targetHundredths = 0
	}
	if targetHundredths > resultOutcomes-1 {
		targetHundredths = resultOutcomes - 1
	}

	var favorable int64
	if direction == models.DirectionOver {
		favorable = (resultOutcomes - 1) - targetHundredths
	} else {
		favorable = targetHundredths
	}
	return float64(favorable) / float64(resultOutcomes)
}

// FairMultiplier is the payout multiplier after the house edge (a percent,
// e.g. 1.5) is taken off the statistically fair value. Uncapped: only the
// final profit is clamped, at settlement time.
func FairMultiplier(winChance, houseEdgePercent float64) float64 {
	if winChance <= 0 {
		return 0
	}
	return (1 - houseEdgePercent/100) / winChance
}

// VerifyRoll recomputes every stored fairness value from the revealed
// seeds and reports field-by-field whether the record checks out.
func VerifyRoll(clientSeed, serverSeed string, target float64, direction models.Direction, bet *models.Bet) *models.VerifyReport {
	result, resultHash := Reveal(clientSeed, serverSeed)
	report := &models.VerifyReport{
		Result:         result,
		ResultHash:     resultHash,
		ServerSeedHash: CommitmentHash(serverSeed),
		Win:            CheckOutcome(result, target, direction),
	}

	if bet != nil {
		report.CommitmentMatch = report.ServerSeedHash == bet.ServerSeedHash
		report.ResultMatch = report.Result == bet.Result && report.ResultHash == bet.ResultHash
		report.WinMatch = report.Win == bet.Win
	}
	return report
}
