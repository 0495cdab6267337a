package main

import (
	"go.uber.org/zap"

	"backend/internal/config"
	"backend/internal/mlbackend"
	"backend/internal/notifier"
	"backend/internal/repository"
	"backend/internal/server"
	"backend/internal/service"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	service.SetJWTSecret(cfg.Auth.JWTSecret)

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Select the active inference backend (client + normalizer pair)
	backend, normalize, err := mlbackend.New(cfg.Backend)
	if err != nil {
		logger.Fatal("Failed to configure inference backend", zap.Error(err))
	}
	logger.Info("Inference backend configured",
		zap.String("variant", backend.Name()),
		zap.String("url", cfg.Backend.URL),
		zap.Int64("timeout_seconds", cfg.Backend.TimeoutSeconds))

	// Telegram ops notifier (optional)
	alerts, err := notifier.New(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
		alerts = nil
	}

	// Initialize and run the server
	srv := server.NewServer(db, cfg, logger, backend, normalize, alerts)
	srv.Run(cfg.Server.Port)
}
