package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/labgate/internal/app"
	"github.com/BradenHooton/labgate/internal/background"
	"github.com/BradenHooton/labgate/internal/config"
	"github.com/BradenHooton/labgate/internal/database"
	"github.com/BradenHooton/labgate/internal/handlers"
	"github.com/BradenHooton/labgate/internal/repositories"
	"github.com/BradenHooton/labgate/internal/services"
	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Server.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("email_provider", cfg.Email.Provider),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Initialize storage
	var (
		stores app.Stores
		health handlers.HealthChecker
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.NewConnection(startupCtx, &cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := db.MigratePool(startupCtx); err != nil {
				logger.Error("failed to run migrations", slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}

		stores = app.PostgresStores(db)
		health = db
	case "memory":
		logger.Warn("using in-memory storage; all state is lost on restart")
		stores = app.MemoryStores(repositories.NewMemoryStore())
	}

	// Code delivery
	var notifier services.Notifier
	switch cfg.Email.Provider {
	case "ses":
		notifier, err = services.NewSESNotifier(startupCtx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
	default:
		notifier = services.NewLogNotifier(cfg.Server.Env, logger)
	}

	authority, err := app.New(cfg, stores, notifier, services.RealClock{}, logger)
	if err != nil {
		logger.Error("failed to initialize services", slog.Any("error", err))
		os.Exit(1)
	}

	// Bootstrap first super admin if configured
	created, err := authority.Admin.EnsureSuperAdmin(startupCtx, cfg.Bootstrap.SuperAdminEmail, cfg.Bootstrap.SuperAdminPassword)
	switch {
	case err != nil:
		logger.Error("failed to ensure super admin", slog.Any("error", err))
	case created:
		logger.Info("super admin created", slog.String("email", pkglogger.SanitizedEmail(cfg.Bootstrap.SuperAdminEmail)))
	}
	startupCancel()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      authority.Handler(health),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(authority.CleanupTasks(), logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
