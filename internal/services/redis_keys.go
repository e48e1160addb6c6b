package services

import "time"

const (
	KeyBet        = "bet:%s"
	KeyWalletBets = "wallet:%s:bets"
	KeyRecentBets = "bets:recent"
	KeyPendingSet = "bets:pending"
	KeySettings   = "settings:wager"
	KeyRateLimit  = "ratelimit:%s:%s"

	// Bet records are the audit trail; they never expire. Only the
	// per-wallet and recent indexes are trimmed.
	MaxWalletHistory = 1000
	MaxRecentBets    = 100

	ChannelBetEvents = "bet_events"

	DefaultBalanceTTL      = 5 * time.Second
	DefaultBalanceCacheCap = 1024
)
