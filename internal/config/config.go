package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env         string
	Port        string
	MetricsPort string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret   string
	SessionTTL  time.Duration
	HouseWallet string
	Asset       string

	ChainNodeURL string
	ChainTimeout time.Duration
	// Comma-separated wallet:seedHex pairs, house wallet included.
	WalletKeys string

	// Wager defaults; overridable at runtime through the settings hash.
	MinBet           float64
	MaxBet           float64
	HouseEdgePercent float64
	MaxProfit        float64
	MinBetInterval   time.Duration
	MaxBetsPerMinute int
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("ENV", "local"),
		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),

		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		SessionTTL:  getEnvDuration("SESSION_TTL", 24*time.Hour),
		HouseWallet: getEnv("HOUSE_WALLET", ""),
		Asset:       getEnv("ASSET", "TON"),

		ChainNodeURL: getEnv("CHAIN_NODE_URL", "http://localhost:8545"),
		ChainTimeout: getEnvDuration("CHAIN_TIMEOUT", 10*time.Second),
		WalletKeys:   getEnv("WALLET_KEYS", ""),

		MinBet:           getEnvFloat("MIN_BET", 0.1),
		MaxBet:           getEnvFloat("MAX_BET", 1000),
		HouseEdgePercent: getEnvFloat("HOUSE_EDGE_PERCENT", 1.5),
		MaxProfit:        getEnvFloat("MAX_PROFIT", 5000),
		MinBetInterval:   getEnvDuration("MIN_BET_INTERVAL", 2*time.Second),
		MaxBetsPerMinute: getEnvInt("MAX_BETS_PER_MINUTE", 30),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HouseWallet == "" {
		return nil, fmt.Errorf("HOUSE_WALLET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
