package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chaindice-backend/internal/chain"
	"chaindice-backend/internal/config"
	"chaindice-backend/internal/handlers"
	"chaindice-backend/internal/logger"
	"chaindice-backend/internal/metrics"
	"chaindice-backend/internal/middleware"
	"chaindice-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New("chaindice-backend", cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		zlog.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	keys, err := chain.LoadKeyStore(cfg.WalletKeys)
	if err != nil {
		zlog.Fatal("failed to load wallet keys", zap.Error(err))
	}
	if _, ok := keys.Signer(cfg.HouseWallet); !ok {
		zlog.Fatal("house wallet has no registered signer", zap.String("wallet", cfg.HouseWallet))
	}

	chainClient := chain.NewHTTPClient(cfg.ChainNodeURL, cfg.ChainTimeout)

	ledger := services.NewBetLedger(redisClient)
	settings := services.NewSettingsService(redisClient, services.WagerSettings{
		Enabled:          true,
		MinBet:           cfg.MinBet,
		MaxBet:           cfg.MaxBet,
		HouseEdgePercent: cfg.HouseEdgePercent,
		MaxProfit:        cfg.MaxProfit,
		MinBetInterval:   cfg.MinBetInterval,
		MaxBetsPerMinute: cfg.MaxBetsPerMinute,
	})
	oracle := services.NewBalanceOracle(chainClient)
	executor := services.NewSettlementExecutor(
		chainClient, keys, oracle, services.NewClock(), zlog, services.DefaultExecutorConfig())
	broadcaster := services.NewRedisBroadcaster(redisClient, zlog)

	engine := services.NewBetEngine(
		ledger,
		settings,
		services.NewAdmissionControl(),
		services.NewReservationManager(),
		oracle,
		executor,
		broadcaster,
		zlog,
		cfg.HouseWallet,
		cfg.Asset,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bets left in flight by a previous process are voided before any new
	// wagering starts, then the reconciler keeps sweeping.
	if err := engine.ReconcileStale(ctx); err != nil {
		zlog.Fatal("startup reconciliation failed", zap.Error(err))
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := engine.ReconcileStale(ctx); err != nil {
					zlog.Error("reconciliation sweep failed", zap.Error(err))
				}
			}
		}
	}()

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.SessionTTL)
	authHandler := handlers.NewAuthHandler(jwtService, keys)
	betHandler := handlers.NewBetHandler(engine, oracle, cfg.Asset)
	wsHandler := handlers.NewWebSocketHandler(zlog)

	services.StartSubscriber(ctx, redisClient, wsHandler, zlog)

	metricsSrv := metrics.StartServer(cfg.MetricsPort, ledger.Ping)
	defer metricsSrv.Close()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/session", authHandler.CreateSession)

	// Public audit surface: no session required to verify a bet.
	router.POST("/api/verify", betHandler.VerifySeeds)
	router.POST("/api/bets/:id/verify", betHandler.VerifyBet)
	router.GET("/api/bets/recent", betHandler.GetRecent)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(ledger))
	{
		protected.POST("/bets", betHandler.PlaceBet)
		protected.POST("/bets/roll", betHandler.Roll)
		protected.GET("/bets/history", betHandler.GetHistory)
		protected.GET("/balance", betHandler.GetBalance)

		protected.GET("/ws", wsHandler.HandleWebSocket)
	}

	zlog.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("metrics_port", cfg.MetricsPort),
		zap.String("house_wallet", cfg.HouseWallet),
		zap.String("asset", cfg.Asset),
	)
	if err := router.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
