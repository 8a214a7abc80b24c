// Package main is the entry point for the ThumbForge API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thumbforge/internal/ai"
	"thumbforge/internal/cache"
	"thumbforge/internal/config"
	"thumbforge/internal/database"
	"thumbforge/internal/generator"
	"thumbforge/internal/handlers"
	"thumbforge/internal/identity"
	"thumbforge/internal/router"
	"thumbforge/internal/storage"
	"thumbforge/internal/store"
)

func main() {
	// Structured logger — outputs JSON in production, text in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey (identity verification cache). Optional — the app
	// verifies every request against the provider when unavailable.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable — identity cache disabled", "error", err)
		valkeyClient = nil
	}
	if valkeyClient != nil {
		defer valkeyClient.Close()
	}

	// Identity provider client for session verification.
	verifier := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey, valkeyClient)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	thumbnailStore := store.NewThumbnailStore(db)

	// Connect to S3-compatible object storage.
	uploader, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if uploader == nil {
		slog.Error("s3 storage not configured — generation cannot persist images")
		os.Exit(1)
	}
	slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)

	// Gemini client for image generation, grounding, and prompt enhancement.
	aiClient := ai.NewClient(ai.Config{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiImageModel,
		TextModel:  cfg.GeminiTextModel,
	})

	// The orchestrator ties the pipeline together.
	orch := generator.New(aiClient, uploader, userStore, thumbnailStore)

	// HTTP handlers and routes.
	api := handlers.NewAPI(orch, thumbnailStore, userStore, handlers.NewUploadSigner(cfg.UploadPrivateKey))
	r := router.New(verifier, api, cfg.GenerateRateLimit)

	// Create the HTTP server with sensible timeouts. WriteTimeout must
	// accommodate the generation endpoint, which waits on the image model
	// (bounded at 120s per request).
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
