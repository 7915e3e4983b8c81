package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/opsledger/backoffice_ledger/internal/adapters/database/pgsql"
	"github.com/opsledger/backoffice_ledger/internal/adapters/memory"
	"github.com/opsledger/backoffice_ledger/internal/adapters/pubsub"
	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
	"github.com/opsledger/backoffice_ledger/internal/core/services"
	"github.com/opsledger/backoffice_ledger/internal/handlers"
	"github.com/opsledger/backoffice_ledger/internal/middleware"
	"github.com/opsledger/backoffice_ledger/internal/platform/config"
	"github.com/opsledger/backoffice_ledger/pkg/database"
)

// @title Ledger Posting API
// @version 1.0
// @description Journal entry and accounting period lifecycle service.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Posting notifications: publish to Pub/Sub when configured, otherwise
	// keep them in-process.
	var notifier portssvc.PostingNotifier
	if cfg.PubSubProjectID != "" && cfg.PubSubTopic != "" {
		pubsubNotifier, err := pubsub.NewPostingNotifier(context.Background(), cfg.PubSubProjectID, cfg.PubSubTopic)
		if err != nil {
			logger.Error("Failed to initialize pubsub notifier", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pubsubNotifier.Stop()
		notifier = pubsubNotifier
		logger.Info("Posting notifications via Pub/Sub", slog.String("topic", cfg.PubSubTopic))
	} else {
		notifier = memory.NewPostingNotifier()
		logger.Info("Posting notifications kept in-process.")
	}

	eventStore := pgsql.NewPgxEventStoreRepository(dbPool)
	accounts := pgsql.NewPgxAccountDirectoryRepository(dbPool)
	container := services.NewServiceContainer(eventStore, accounts, notifier)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if rateLimiter, err := newRateLimiter(cfg.RateLimit); err != nil {
		logger.Warn("Invalid RATE_LIMIT, rate limiting disabled", slog.String("error", err.Error()))
	} else {
		r.Use(middleware.RateLimit(rateLimiter))
	}

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending "up" migrations from the migrations
// directory over a temporary database/sql connection.
func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("Running database migrations...")

	// Using pgx/v5/stdlib driver to be compatible with the main pool
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return upErr
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// newRateLimiter builds an in-memory rate limiter from a formatted rate like
// "300-M" (300 requests per minute).
func newRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(limitermem.NewStore(), rate), nil
}
