package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"prediction-events/internal/auth"
	"prediction-events/internal/blockchain"
	"prediction-events/internal/config"
	"prediction-events/internal/database"
	"prediction-events/internal/handlers"
	"prediction-events/internal/jobs"
	"prediction-events/internal/repository"
	"prediction-events/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())
	authService := services.NewAuthService(database.GetDB())
	payoutService := services.NewPayoutService()
	stakingService := services.NewStakingService(database.GetDB(), decimal.NewFromFloat(cfg.Engine.BaseCreationFee))
	reputationService := services.NewReputationService(database.GetDB())
	eventService := services.NewEventService(
		repo,
		payoutService,
		stakingService,
		reputationService,
		decimal.NewFromFloat(cfg.Engine.MinCreatorDeposit),
	)
	priceService := services.NewPriceService()

	// Initialize Solana client
	solanaClient := blockchain.NewSolanaClient(cfg.Solana.Network)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	eventHandler := handlers.NewEventHandler(eventService, solanaClient)
	stakingHandler := handlers.NewStakingHandler(stakingService)
	creatorHandler := handlers.NewCreatorHandler(reputationService, repo)

	// Start the phase sweeper
	sweeper := jobs.NewPhaseSweeper(eventService, priceService, cfg.Engine.SweepInterval)
	go sweeper.Start()
	log.Println("Phase sweeper started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:3001",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:3001",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public event routes
	router.GET("/api/events", eventHandler.ListEvents)
	router.GET("/api/events/:id", eventHandler.GetEvent)
	router.GET("/api/events/:id/payout-preview", eventHandler.GetPayoutPreview)
	router.GET("/api/events/:id/transactions", eventHandler.GetEventTransactions)
	router.GET("/api/creators/:wallet", creatorHandler.GetCreatorProfile)
	router.GET("/api/creators/:wallet/events", creatorHandler.GetCreatorEvents)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Event lifecycle endpoints
		api.POST("/events", eventHandler.CreateEvent)
		api.POST("/events/:id/join", eventHandler.JoinEvent)
		api.POST("/events/:id/predict", eventHandler.SubmitPrediction)
		api.POST("/events/:id/cancel", eventHandler.CancelEvent)

		// Staking endpoints
		api.GET("/staking/status", stakingHandler.GetStakeStatus)
		api.POST("/staking/stake", stakingHandler.Stake)
		api.POST("/staking/unstake", stakingHandler.Unstake)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.AdminMiddleware())
	{
		admin.POST("/events/:id/resolve", eventHandler.ResolveEvent)
		admin.POST("/staking/:wallet/penalty", stakingHandler.ApplyPenalty)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	sweeper.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
