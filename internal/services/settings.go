package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// WagerSettings are the game parameters read fresh on every placement.
// Operators override individual fields in the settings hash at runtime; the
// struct passed to NewSettingsService carries the deployment defaults.
type WagerSettings struct {
	Enabled          bool
	MinBet           float64
	MaxBet           float64
	HouseEdgePercent float64
	MaxProfit        float64
	MinBetInterval   time.Duration
	MaxBetsPerMinute int
}

type SettingsService struct {
	client   *redis.Client
	defaults WagerSettings
}

func NewSettingsService(client *redis.Client, defaults WagerSettings) *SettingsService {
	return &SettingsService{client: client, defaults: defaults}
}

// Current merges runtime overrides from the settings hash over the
// defaults. A missing hash or unreadable field falls back silently; a Redis
// error is returned so a placement never proceeds on unknown limits.
func (s *SettingsService) Current(ctx context.Context) (WagerSettings, error) {
	out := s.defaults

	fields, err := s.client.HGetAll(ctx, KeySettings).Result()
	if err != nil {
		return out, fmt.Errorf("failed to load wager settings: %v", err)
	}

	for field, raw := range fields {
		switch field {
		case "enabled":
			if v, err := strconv.ParseBool(raw); err == nil {
				out.Enabled = v
			}
		case "min_bet":
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				out.MinBet = v
			}
		case "max_bet":
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				out.MaxBet = v
			}
		case "house_edge_percent":
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				out.HouseEdgePercent = v
			}
		case "max_profit":
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				out.MaxProfit = v
			}
		case "min_bet_interval_ms":
			if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
				out.MinBetInterval = time.Duration(v) * time.Millisecond
			}
		case "max_bets_per_minute":
			if v, err := strconv.Atoi(raw); err == nil {
				out.MaxBetsPerMinute = v
			}
		}
	}

	return out, nil
}

// Set writes one override field. Exposed for operational tooling and tests.
func (s *SettingsService) Set(ctx context.Context, field, value string) error {
	return s.client.HSet(ctx, KeySettings, field, value).Err()
}
