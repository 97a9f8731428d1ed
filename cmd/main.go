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

	"listing-registry/internal/assets"
	"listing-registry/internal/auth"
	"listing-registry/internal/config"
	"listing-registry/internal/database"
	"listing-registry/internal/handlers"
	"listing-registry/internal/repository"
	"listing-registry/internal/services"
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
	repo := repository.NewRepository(db)

	// External asset ledger. The in-process implementation stands in for
	// the chain client in development deployments.
	ledger := assets.NewMemoryLedger()

	// Initialize services
	eventService := services.NewEventService()
	authorityService := services.NewAuthorityService(db, eventService)
	categoryService := services.NewCategoryService(db, repo, authorityService, eventService)
	escrowService := services.NewEscrowService(db, ledger, authorityService, eventService, cfg.Policy.MinMargin)
	projectService := services.NewProjectService(db, repo, categoryService, escrowService, authorityService, eventService)
	proposalService := services.NewProposalService(db, repo, categoryService, escrowService, authorityService, eventService, projectService)
	reviewService := services.NewReviewService(db, repo, eventService)

	// Bootstrap an admin for fresh deployments
	if bootstrapAdmin := os.Getenv("BOOTSTRAP_ADMIN"); bootstrapAdmin != "" {
		if !assets.ValidAddress(bootstrapAdmin) {
			log.Fatalf("BOOTSTRAP_ADMIN is not a valid address: %s", bootstrapAdmin)
		}
		if err := authorityService.Bootstrap(context.Background(), bootstrapAdmin); err != nil {
			log.Fatalf("Failed to bootstrap admin: %v", err)
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authorityService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	projectHandler := handlers.NewProjectHandler(projectService, proposalService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	adminHandler := handlers.NewAdminHandler(authorityService, escrowService, repo)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
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

	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public read routes
	router.GET("/api/categories/:taxonomy", categoryHandler.ListCategories)
	router.GET("/api/categories/:taxonomy/:index", categoryHandler.GetCategory)
	router.GET("/api/projects", projectHandler.ListProjects)
	router.GET("/api/projects/:address", projectHandler.GetProject)
	router.GET("/api/projects/:address/proposal", projectHandler.GetPendingProposal)
	router.GET("/api/projects/:address/comments", reviewHandler.ListComments)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/projects", projectHandler.SubmitProject)
		api.POST("/projects/proposals", projectHandler.ProposeUpdate)

		api.POST("/projects/:address/comments", reviewHandler.SubmitComment)
		api.DELETE("/projects/:address/comments", reviewHandler.DeleteComment)
		api.POST("/projects/:address/comments/:reviewer/vote", reviewHandler.Vote)
	}

	// Verifier routes (protected + verifier only)
	verifier := router.Group("/api/verifier")
	verifier.Use(auth.AuthMiddleware())
	verifier.Use(adminHandler.VerifierMiddleware())
	{
		verifier.POST("/categories/:taxonomy", categoryHandler.AddCategory)
		verifier.PUT("/categories/:taxonomy/:index", categoryHandler.RenameCategory)

		verifier.POST("/projects/:address/approve", projectHandler.ApproveProject)
		verifier.POST("/projects/:address/reject", projectHandler.RejectProject)
		verifier.POST("/projects/:address/cancel", projectHandler.CancelProject)

		verifier.POST("/projects/:address/proposal/accept", projectHandler.AcceptProposal)
		verifier.POST("/projects/:address/proposal/reject", projectHandler.RejectProposal)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(adminHandler.AdminMiddleware())
	{
		admin.POST("/roles/grant", adminHandler.GrantRole)
		admin.POST("/roles/revoke", adminHandler.RevokeRole)
		admin.GET("/roles/:address", adminHandler.GetRoles)

		admin.GET("/treasury", adminHandler.GetTreasury)
		admin.POST("/treasury/withdraw", adminHandler.Withdraw)
		admin.GET("/escrow/:address", adminHandler.GetEscrowHold)
		admin.GET("/escrow/:address/transactions", adminHandler.ListEscrowTransactions)

		admin.GET("/events", adminHandler.ListEvents)
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
