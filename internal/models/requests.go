package models

type PlaceBetRequest struct {
	Stake      float64   `json:"stake" binding:"required,gt=0"`
	Target     float64   `json:"target"`
	Direction  Direction `json:"direction" binding:"required"`
	ClientSeed string    `json:"client_seed" binding:"required"`
}

type PlaceBetResponse struct {
	BetID          string  `json:"bet_id"`
	ServerSeedHash string  `json:"server_seed_hash"`
	WinChance      float64 `json:"win_chance"`
	Multiplier     float64 `json:"multiplier"`
	MaxProfit      float64 `json:"max_profit"`
}

type RollRequest struct {
	BetID      string `json:"bet_id" binding:"required"`
	ClientSeed string `json:"client_seed" binding:"required"`
}

type RollResponse struct {
	BetID       string  `json:"bet_id"`
	Result      float64 `json:"result"`
	ResultHash  string  `json:"result_hash"`
	ServerSeed  string  `json:"server_seed"`
	Win         bool    `json:"win"`
	Profit      float64 `json:"profit"`
	TransferRef string  `json:"transfer_ref,omitempty"`
}

type VerifyRequest struct {
	ClientSeed string    `json:"client_seed" binding:"required"`
	ServerSeed string    `json:"server_seed" binding:"required"`
	Target     float64   `json:"target"`
	Direction  Direction `json:"direction" binding:"required"`
}

// VerifyReport is the externally auditable half of the commit-reveal
// protocol: every recomputed value next to a match flag.
type VerifyReport struct {
	Result          float64 `json:"result"`
	ResultHash      string  `json:"result_hash"`
	ServerSeedHash  string  `json:"server_seed_hash"`
	Win             bool    `json:"win"`
	CommitmentMatch bool    `json:"commitment_match"`
	ResultMatch     bool    `json:"result_match"`
	WinMatch        bool    `json:"win_match"`
}

type BetEvent struct {
	Type   string  `json:"type"` // "bet_placed" or "bet_settled"
	BetID  string  `json:"bet_id"`
	Wallet string  `json:"wallet"`
	Stake  float64 `json:"stake"`
	Result float64 `json:"result,omitempty"`
	Win    bool    `json:"win,omitempty"`
	Profit float64 `json:"profit,omitempty"`
}
