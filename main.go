// doctalk/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"doctalk/config"
	"doctalk/database"
	"doctalk/handlers"
	"doctalk/models"
	"doctalk/utils"
)

type Application struct {
	store       *database.Store
	rateLimiter *models.RateLimiter
	logger      *slog.Logger
	storage     models.StorageService
	avatarDir   string
	backupDir   string
}

// Methods to satisfy the handlers.App interface
func (a *Application) Store() *database.Store           { return a.store }
func (a *Application) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *Application) Logger() *slog.Logger             { return a.logger }
func (a *Application) Storage() models.StorageService   { return a.storage }
func (a *Application) AvatarDir() string                { return a.avatarDir }
func (a *Application) BackupDir() string                { return a.backupDir }

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using process environment")
	}

	// --- External Configuration ---
	port := utils.GetEnv("DOCTALK_PORT", "8080")
	dbPath := utils.GetEnv("DOCTALK_DB_PATH", "./doctalk.db?_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	backupDir := utils.GetEnv("DOCTALK_BACKUP_DIR", "./backups")
	avatarDir := utils.GetEnv("DOCTALK_AVATAR_DIR", "./avatars")

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		logger.Error("FATAL: Could not create backup directory", "path", backupDir, "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(avatarDir, 0755); err != nil {
		logger.Error("FATAL: Could not create avatar directory", "path", avatarDir, "error", err)
		os.Exit(1)
	}

	rateLimitEvery, err := time.ParseDuration(utils.GetEnv("DOCTALK_RATE_EVERY", config.DefaultRateLimitEvery))
	if err != nil {
		logger.Warn("Invalid DOCTALK_RATE_EVERY duration, using default", "value", utils.GetEnv("DOCTALK_RATE_EVERY", ""), "default", config.DefaultRateLimitEvery)
		rateLimitEvery, _ = time.ParseDuration(config.DefaultRateLimitEvery)
	}
	rateLimitBurst, err := strconv.Atoi(utils.GetEnv("DOCTALK_RATE_BURST", strconv.Itoa(config.DefaultRateLimitBurst)))
	if err != nil {
		logger.Warn("Invalid DOCTALK_RATE_BURST integer, using default", "value", utils.GetEnv("DOCTALK_RATE_BURST", ""), "default", config.DefaultRateLimitBurst)
		rateLimitBurst = config.DefaultRateLimitBurst
	}
	rateLimitPrune, err := time.ParseDuration(utils.GetEnv("DOCTALK_RATE_PRUNE", config.DefaultRateLimitPrune))
	if err != nil {
		logger.Warn("Invalid DOCTALK_RATE_PRUNE duration, using default", "value", utils.GetEnv("DOCTALK_RATE_PRUNE", ""), "default", config.DefaultRateLimitPrune)
		rateLimitPrune, _ = time.ParseDuration(config.DefaultRateLimitPrune)
	}
	rateLimitExpire, err := time.ParseDuration(utils.GetEnv("DOCTALK_RATE_EXPIRE", config.DefaultRateLimitExpire))
	if err != nil {
		logger.Warn("Invalid DOCTALK_RATE_EXPIRE duration, using default", "value", utils.GetEnv("DOCTALK_RATE_EXPIRE", ""), "default", config.DefaultRateLimitExpire)
		rateLimitExpire, _ = time.ParseDuration(config.DefaultRateLimitExpire)
	}

	store, err := database.InitDB(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.DB.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	// --- Storage Service Init ---
	var storageService models.StorageService
	if utils.GetEnv("DOCTALK_S3_ENABLED", "false") == "true" {
		endpoint := utils.GetEnv("DOCTALK_S3_ENDPOINT", "")
		accessKey := utils.GetEnv("DOCTALK_S3_ACCESS_KEY", "")
		secretKey := utils.GetEnv("DOCTALK_S3_SECRET_KEY", "")
		bucket := utils.GetEnv("DOCTALK_S3_BUCKET", "")
		region := utils.GetEnv("DOCTALK_S3_REGION", "us-east-1")
		publicURL := utils.GetEnv("DOCTALK_S3_PUBLIC_URL", "")
		useSSL := utils.GetEnv("DOCTALK_S3_USE_SSL", "true") == "true"

		storageService, err = utils.NewS3Storage(endpoint, accessKey, secretKey, bucket, region, publicURL, useSSL)
		if err != nil {
			logger.Error("Failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		logger.Info("S3 Storage initialized", "endpoint", endpoint, "bucket", bucket)
	} else {
		storageService = &utils.LocalStorage{AvatarDir: avatarDir}
		logger.Info("Local Storage initialized", "dir", avatarDir)
	}

	app := &Application{
		store:       store,
		rateLimiter: models.NewRateLimiter(rateLimitEvery, rateLimitBurst, rateLimitPrune, rateLimitExpire),
		logger:      logger,
		storage:     storageService,
		avatarDir:   avatarDir,
		backupDir:   backupDir,
	}

	mux := handlers.SetupRouter(app)

	// --- Graceful Shutdown ---
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("doctalk server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+port,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}
