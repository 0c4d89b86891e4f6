package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/api"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/config"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/db"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/services"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/logger"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/metrics"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/secretbox"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	config.LogConfig(cfg, zapLogger)

	keyMaterial := cfg.Security.EncryptionKey
	if keyMaterial == "" {
		// No configured key: generate an ephemeral one. Secrets written
		// under it are unreadable after restart, so warn loudly.
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			zapLogger.Fatal("Failed to generate encryption key", zap.Error(err))
		}
		keyMaterial = hex.EncodeToString(raw)
		zapLogger.Warn("ENCRYPTION_KEY not set, using an ephemeral key for this process")
	}

	box, err := secretbox.New(keyMaterial)
	if err != nil {
		zapLogger.Fatal("Failed to initialize secret codec", zap.Error(err))
	}

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	metricsCollector := metrics.NewMetricsCollector()

	authService := services.NewAuthService(database, cfg.Security.JWTSecret, cfg.Security.TokenTTL, zapLogger)
	versionService := services.NewVersionService(database, zapLogger, metricsCollector)
	credentialService := services.NewCredentialService(database, box, versionService, zapLogger, metricsCollector)
	sharingService := services.NewSharingService(database, box, cfg.Sharing, zapLogger, metricsCollector)

	router := api.NewRouter(zapLogger, metricsCollector, authService, credentialService, versionService, sharingService)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	// Stop taking requests before draining the snapshot queue: an update
	// landing mid-shutdown must not submit to a closed queue.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown", zap.Error(err))
	}

	// Drain pending history snapshots before closing the database.
	versionService.Close()

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}
