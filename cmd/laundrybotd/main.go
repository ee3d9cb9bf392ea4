package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"laundry-bot-backend/config"
	"laundry-bot-backend/internal/api"
	"laundry-bot-backend/internal/db"
	"laundry-bot-backend/internal/engine"
	"laundry-bot-backend/internal/line"
	"laundry-bot-backend/internal/notification"
	"laundry-bot-backend/internal/store"
	"laundry-bot-backend/internal/sweeper"
	"laundry-bot-backend/internal/template"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "laundry-bot ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	templates := template.NewResolver(appStore, time.Duration(cfg.Templates.CacheTTLSeconds)*time.Second)
	lineClient := line.NewClient(cfg.Line.APIBaseURL)

	// Staff alerts run only when VAPID keys are configured; the chat
	// transport stays the primary notification channel either way.
	var alertPool *notification.WorkerPool
	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		alertPool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		alertPool.Start(ctx)
		logger.Println("staff alert worker pool started")
	} else {
		logger.Println("VAPID keys not configured; staff alerts disabled")
	}

	engineSvc := engine.NewService(appStore, templates, lineClient)

	// Initialize and run the sweeper in the background
	sweeperSvc := sweeper.NewService(cfg, appStore, templates, lineClient, alertPool)
	go sweeperSvc.Run(ctx)

	// Initialize router
	router := api.NewRouter(cfg, appStore, engineSvc, sweeperSvc, templates, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
