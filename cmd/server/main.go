package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/coach-portal-backend/config"
	"github.com/ikkim/coach-portal-backend/internal/app/controller"
	"github.com/ikkim/coach-portal-backend/internal/app/repository"
	"github.com/ikkim/coach-portal-backend/internal/app/service"
	"github.com/ikkim/coach-portal-backend/internal/db"
	"github.com/ikkim/coach-portal-backend/internal/gate"
	"github.com/ikkim/coach-portal-backend/internal/middleware"
	"github.com/ikkim/coach-portal-backend/internal/notify"
	"github.com/ikkim/coach-portal-backend/internal/ratelimit"
	"github.com/ikkim/coach-portal-backend/internal/router"
	"github.com/ikkim/coach-portal-backend/internal/scheduler"
	"github.com/ikkim/coach-portal-backend/pkg/logger"
	redisclient "github.com/ikkim/coach-portal-backend/pkg/redis"
	"github.com/ikkim/coach-portal-backend/pkg/util"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration; invalid secrets or limits stop the process here
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting coach portal backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	database, err := db.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Rate limit windows live in Redis when enabled so replicas share them
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.Redis.Enabled {
		rdb, err := redisclient.Connect(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		defer func() {
			if err := redisclient.Close(rdb); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
		store = ratelimit.NewRedisStore(rdb, "coach:rl")
	} else {
		logger.Warn("Redis disabled, rate limit windows are kept in process memory")
	}
	limiter := ratelimit.New(store, cfg.RateLimit.StoreTimeout)

	// Notifications
	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(&cfg.SMTP, cfg.Reset.NotifyTimeout)
	} else {
		logger.Warn("SMTP is not configured, reset emails are only logged")
		notifier = notify.NewLogNotifier()
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(database)
	resetTokenRepo := repository.NewResetTokenRepository(database)

	// Initialize services
	sessions := util.NewSessionManager(
		cfg.Session.Secret,
		cfg.Session.Expiry,
		cfg.Session.CookieName,
		cfg.Session.Secure,
	)
	vault := service.NewTokenVault(resetTokenRepo, cfg.Reset.TokenTTL, cfg.Database.Timeout)
	authService := service.NewAuthService(
		accountRepo,
		service.NewCredentialManager(),
		vault,
		notifier,
		sessions,
		service.AuthServiceConfig{
			AppBaseURL:    cfg.Server.AppBaseURL,
			StoreTimeout:  cfg.Database.Timeout,
			NotifyTimeout: cfg.Reset.NotifyTimeout,
			ResponseFloor: cfg.Reset.ResponseFloor,
		},
	)

	accessGate := gate.New(gate.DefaultRules, cfg.Locale.Supported, cfg.Locale.Default)

	// Initialize controllers and middleware
	authController := controller.NewAuthController(authService, sessions, accessGate)
	authMiddleware := middleware.NewAuthMiddleware(sessions)

	// Setup router
	r := router.NewRouter(
		authController,
		authMiddleware,
		limiter,
		accessGate,
		sessions,
		cfg,
	)
	engine := r.Setup()

	// Expired reset tokens are also removed lazily on lookup
	sweeper := scheduler.NewTokenSweepScheduler(vault, cfg.Reset.SweepSchedule, cfg.Database.Timeout)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start reset token sweep scheduler", err)
	}
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shut down", err)
	}
	logger.Info("Server stopped successfully")
}
