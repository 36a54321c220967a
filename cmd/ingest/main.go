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

	"github.com/kairocrm/ingest/internal/ai"
	"github.com/kairocrm/ingest/internal/config"
	"github.com/kairocrm/ingest/internal/database"
	"github.com/kairocrm/ingest/internal/gmail"
	"github.com/kairocrm/ingest/internal/handler"
	"github.com/kairocrm/ingest/internal/repository"
	"github.com/kairocrm/ingest/internal/service"
	"github.com/kairocrm/ingest/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	log.Println("Database connected successfully")

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	log.Println("Migrations completed successfully")

	// Initialize repositories
	documentRepo := repository.NewDocumentRepository(db)
	accountRepo := repository.NewEmailAccountRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	// Initialize capabilities (constructed once, injected everywhere)
	aiClient := ai.NewClient(cfg.DeepseekAPIKey)
	gmailClient := gmail.NewClient(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Initialize services
	enricher := service.NewEnricher(documentRepo, aiClient)
	billingService := service.NewBillingService(subscriptionRepo)
	scheduler := service.NewScheduler(accountRepo, gmailClient)

	// Initialize HTTP surface
	router := handler.NewRouter(
		handler.NewOCRWebhookHandler(enricher, cfg.OCRWebhookSecret),
		handler.NewBillingWebhookHandler(billingService, cfg.StripeWebhookSecret),
		handler.NewSyncHandler(scheduler, cfg.CronSecret, cfg.SyncBatchSize),
		scheduler,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 2)

	// Optional internal poll loop; most deployments trigger sync over HTTP
	if cfg.SyncPollInterval > 0 {
		w := watcher.New(scheduler, time.Duration(cfg.SyncPollInterval)*time.Second, cfg.SyncBatchSize)
		go func() {
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- err
			}
		}()
	}

	go func() {
		log.Printf("HTTP server listening on :%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	return waitForShutdown(server, sigChan, errChan, cancel, time.Duration(cfg.ShutdownTimeout)*time.Second)
}

// waitForShutdown blocks until a shutdown signal or a fatal component error,
// then drains the HTTP server either way. The component error, if any, is
// returned after the drain.
func waitForShutdown(server *http.Server, sigChan <-chan os.Signal, errChan <-chan error, cancel context.CancelFunc, timeout time.Duration) error {
	var runErr error
	select {
	case <-sigChan:
		log.Println("Shutdown signal received")
	case runErr = <-errChan:
		log.Printf("Shutting down after error: %v", runErr)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Application stopped")
	return runErr
}
