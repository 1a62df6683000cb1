package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"casa-backend/internal/config"
	"casa-backend/internal/handlers"
	"casa-backend/internal/logger"
	"casa-backend/internal/middleware"
	"casa-backend/internal/services"
	"casa-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	var st store.Store
	switch cfg.StoreBackend {
	case "redis":
		rs, err := store.NewRedisStore(cfg.RedisURL, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			zlog.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rs.Close()
		st = rs
	default:
		st = store.NewFileStore(cfg.UsersFile)
	}

	clock := services.SystemClock()

	ledger, err := services.NewLedger(st, cfg.DailyVirtualLimit, clock, zlog)
	if err != nil {
		zlog.Fatal("failed to load accounts", zap.Error(err))
	}

	jwtService := services.NewJWTService(cfg.JWTSecret)

	hub := handlers.NewHub(zlog)
	wsHandler := handlers.NewWebSocketHandler(hub)

	outcomes := services.NewOutcomes(time.Now().UnixNano())
	engine := services.NewEngine(ledger, outcomes, hub, clock, cfg.MinBet, cfg.MaxBet, zlog)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			engine.SweepStale(10 * time.Minute)
		}
	}()

	payClient := services.NewCryptoPayClient(cfg.CryptoPayURL, cfg.CryptoPayToken)
	reconciler := services.NewReconciler(payClient, ledger, hub, clock, zlog)
	go reconciler.Run(context.Background(), 30*time.Second)

	authHandler := handlers.NewAuthHandler(jwtService, ledger)
	userHandler := handlers.NewUserHandler(ledger, engine)
	gameHandler := handlers.NewGameHandler(engine, ledger)
	paymentHandler := handlers.NewPaymentHandler(reconciler)
	adminHandler := handlers.NewAdminHandler(ledger, cfg)

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

	router.POST("/auth/login", authHandler.Login)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/toggle-currency", userHandler.ToggleCurrency)
		protected.POST("/bonus", userHandler.Bonus)
		protected.POST("/deposit", paymentHandler.Deposit)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.POST("/bet", gameHandler.PlaceBet)
			games.POST("/cashout", gameHandler.Cashout)
			games.GET("/active", gameHandler.GetActiveSession)

			ladder := games.Group("/ladder")
			{
				ladder.POST("/step", gameHandler.LadderStep)
				ladder.POST("/cashout", gameHandler.LadderCashout)
			}

			dice := games.Group("/dice")
			{
				dice.POST("/play", gameHandler.PlayDice)
			}
		}

		admin := protected.Group("/admin")
		admin.Use(adminHandler.RequireAdmin())
		{
			admin.POST("/credit", adminHandler.Credit)
			admin.GET("/stats", adminHandler.Stats)
		}
	}

	zlog.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
