package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowsync/infrastructure/config"
	"flowsync/infrastructure/di"
	"flowsync/interfaces/http/rest"

	"go.uber.org/zap"
)

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Watch the override file so the quiescence window can be tuned
	// without a restart.
	if overridePath := os.Getenv("OVERRIDES_FILE"); overridePath != "" {
		watcher, err := config.NewWatcher(overridePath, container.Logger, func(o config.Overrides) {
			if o.QuiescenceWindow > 0 {
				container.Scheduler.SetWindow(o.QuiescenceWindow)
			}
		})
		if err != nil {
			container.Logger.Warn("Failed to watch overrides file", zap.String("path", overridePath), zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	// Create router
	router := rest.NewRouter(
		container.SyncService,
		container.FlowService,
		container.Config,
		container.Metrics,
		container.Logger,
	)

	// Setup routes
	handler := router.Setup()

	// Create HTTP server. WriteTimeout stays unset so the /events
	// stream can run for as long as the client holds it open.
	srv := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	// Flush pending writes and tear down the push channel
	if err := container.Close(); err != nil {
		container.Logger.Error("Container shutdown error", zap.Error(err))
	}

	// Clean up resources
	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
