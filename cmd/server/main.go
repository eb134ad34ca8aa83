package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lcportal/lcportal/internal/api"
	"github.com/lcportal/lcportal/internal/config"
	"github.com/lcportal/lcportal/internal/repository"
	"github.com/lcportal/lcportal/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open shared database connection
	db, err := repository.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.EnsureSchema(schemaCtx, db); err != nil {
		cancel()
		log.Fatalf("Failed to apply database schema: %v", err)
	}
	cancel()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	notificationService := service.NewNotificationService(notificationRepo, userRepo)
	applicationService := service.NewApplicationService(applicationRepo, companyRepo, notificationService)
	rateLimitService, err := service.NewRateLimitService(cfg.RedisURL, cfg.RateLimitWindow, cfg.RateLimitRequests)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rateLimitService.Close()

	// Set up router
	router := api.NewRouter(
		applicationService,
		notificationService,
		authService,
		rateLimitService,
		companyRepo,
		userRepo,
	)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting LC portal server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
