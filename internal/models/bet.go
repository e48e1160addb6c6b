package models

import "time"

type BetStatus string

const (
	BetStatusPlaced        BetStatus = "placed"
	BetStatusRollRequested BetStatus = "roll_requested"
	BetStatusSettled       BetStatus = "settled"
	BetStatusFailed        BetStatus = "failed"
)

// IsTerminal reports whether a bet can no longer change, apart from the
// Verified flag set by an independent recomputation.
func (s BetStatus) IsTerminal() bool {
	return s == BetStatusSettled || s == BetStatusFailed
}

type Direction string

const (
	DirectionOver  Direction = "over"
	DirectionUnder Direction = "under"
)

// Bet is the durable record of one wager, from placement to settlement.
type Bet struct {
	ID     string `json:"id" redis:"id"`
	Wallet string `json:"wallet" redis:"wallet"`
	Asset  string `json:"asset" redis:"asset"`

	Stake      float64   `json:"stake" redis:"stake"`
	Target     float64   `json:"target" redis:"target"`
	Direction  Direction `json:"direction" redis:"direction"`
	WinChance  float64   `json:"win_chance" redis:"win_chance"`
	Multiplier float64   `json:"multiplier" redis:"multiplier"` // fair, uncapped
	MaxProfit  float64   `json:"max_profit" redis:"max_profit"` // capped potential profit

	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	ServerSeed     string `json:"-" redis:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	ResultHash     string `json:"result_hash,omitempty" redis:"result_hash"`

	Result float64 `json:"result" redis:"result"`
	Win    bool    `json:"win" redis:"win"`
	Profit float64 `json:"profit" redis:"profit"` // signed: negative on loss

	TransferRef string `json:"transfer_ref,omitempty" redis:"transfer_ref"`
	FailReason  string `json:"fail_reason,omitempty" redis:"fail_reason"`

	Status   BetStatus `json:"status" redis:"status"`
	Verified bool      `json:"verified" redis:"verified"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	SettledAt time.Time `json:"settled_at,omitempty" redis:"settled_at"`
}

// PotentialPayout is the worst case the house must cover while the bet is
// outstanding: the player's stake back plus the capped profit.
func (b *Bet) PotentialPayout() float64 {
	return b.Stake + b.MaxProfit
}
