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

	"favor-market/internal/auth"
	"favor-market/internal/config"
	"favor-market/internal/database"
	"favor-market/internal/handlers"
	"favor-market/internal/services"
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

	db := database.GetDB()

	// Initialize services
	authService := services.NewAuthService(db)
	ledgerService := services.NewLedgerService(db, cfg.Ledger.TokenSymbol)
	escrowService := services.NewEscrowService(db, ledgerService, cfg.Ledger.CustodyAddress)
	favorService := services.NewFavorService(db, ledgerService, escrowService)
	marketService := services.NewMarketService(db, ledgerService, escrowService)
	faucetService := services.NewFaucetService(db, ledgerService, cfg.Ledger.FaucetAddress, cfg.Ledger.FaucetAmount)

	// Bootstrap the token config and initial supply on first run
	if err := ledgerService.EnsureGenesis(context.Background(), cfg.Ledger.OwnerAddress, cfg.Ledger.InitialSupply, cfg.Ledger.Decimals); err != nil {
		log.Fatalf("Failed to bootstrap ledger: %v", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	favorHandler := handlers.NewFavorHandler(favorService)
	marketHandler := handlers.NewMarketHandler(marketService)
	ledgerHandler := handlers.NewLedgerHandler(db, ledgerService, escrowService, faucetService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
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

	// Public read routes
	router.GET("/api/favors", favorHandler.ListFavors)
	router.GET("/api/favors/:id", favorHandler.GetFavor)
	router.GET("/api/market/items", marketHandler.ListItems)
	router.GET("/api/market/items/:id", marketHandler.GetItem)
	router.GET("/api/market/items/:id/redemptions/:idx", marketHandler.GetRedemption)
	router.GET("/api/ledger/owner", ledgerHandler.GetOwner)
	router.GET("/api/events/:entity/:id", ledgerHandler.GetEvents)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Favor workflow endpoints
		api.POST("/favors", favorHandler.PostFavor)
		api.POST("/favors/:id/approve", favorHandler.Approve)
		api.POST("/favors/:id/reject", favorHandler.Reject)
		api.POST("/favors/:id/bid", favorHandler.Bid)
		api.POST("/favors/:id/assignees", favorHandler.SetAssignees)
		api.POST("/favors/:id/complete", favorHandler.Complete)
		api.POST("/favors/:id/revert", favorHandler.RevertComplete)
		api.POST("/favors/:id/acknowledge", favorHandler.Acknowledge)
		api.POST("/favors/:id/cancel", favorHandler.Cancel)

		// Market workflow endpoints
		api.POST("/market/items", marketHandler.PostItem)
		api.POST("/market/items/:id/approve", marketHandler.ApproveItem)
		api.POST("/market/items/:id/reject", marketHandler.RejectItem)
		api.POST("/market/items/:id/void", marketHandler.VoidPostedItem)
		api.POST("/market/items/:id/redeem", marketHandler.Redeem)
		api.POST("/market/items/:id/redemptions/:idx/delivery", marketHandler.Delivery)
		api.POST("/market/items/:id/redemptions/:idx/confirm", marketHandler.Confirm)
		api.POST("/market/items/:id/redemptions/:idx/void", marketHandler.VoidRedemption)

		// Ledger endpoints
		api.GET("/ledger/balance/:address", ledgerHandler.GetBalance)
		api.GET("/ledger/allowance/:owner/:spender", ledgerHandler.GetAllowance)
		api.POST("/ledger/transfer", ledgerHandler.Transfer)
		api.POST("/ledger/approve", ledgerHandler.Approve)
		api.POST("/ledger/owner", ledgerHandler.TransferOwnership)
		api.GET("/ledger/history", ledgerHandler.GetHistory)
		api.POST("/ledger/faucet", ledgerHandler.Faucet)

		// Escrow queries
		api.GET("/escrow/:workflow", ledgerHandler.GetEscrowAccount)
		api.GET("/escrow/:workflow/entries", ledgerHandler.GetEscrowEntries)
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

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
