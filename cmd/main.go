package main

import (
	"context"
	_ "customer-api/docs"
	"customer-api/internal/api"
	"customer-api/internal/api/middleware"
	"customer-api/internal/batch"
	"customer-api/internal/config"
	"customer-api/internal/domain/customer"
	"customer-api/internal/event"
	"customer-api/internal/infrastructure/database/memory"
	"customer-api/internal/infrastructure/database/mongodb"
	"customer-api/internal/infrastructure/database/postgres"
	"customer-api/internal/infrastructure/logging"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const (
	cronStopTimeout     = 15 * time.Second
	serverStopTimeout   = 20 * time.Second
	serverConfirmWait   = 5 * time.Second
	storeConnectTimeout = 30 * time.Second
	redisPingTimeout    = 5 * time.Second
)

// @title Customer API
// @version 1.0
// @description REST API for managing customer records.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	if err := run("."); err != nil {
		slog.Error("Application exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, logger, err := initializeApp(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	repo, closeStore, err := initializeStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to initialize %s customer store: %w", cfg.Database.Driver, err)
	}
	defer closeStore()

	publisher, closeEvents := initializeEvents(cfg, logger)
	defer closeEvents()

	customerService := customer.NewCustomerService(repo, publisher, logger)

	statsJob := batch.NewCustomerStatsJob(customerService, logger)
	cronScheduler := startBatchJobs(cfg, logger, statsJob)

	redisClient := initializeRedisClient(cfg, logger)
	if redisClient != nil {
		defer closeRedisClient(redisClient, logger)
	}
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg.Server.RateLimit, redisClient, logger)
	defer rateLimiter.Close()

	router := api.SetupRouter(rateLimiter, customerService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	if !handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger) {
		return errors.New("server exited unexpectedly")
	}
	return nil
}

func initializeApp(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewLogger(cfg.Logger)
	logger.Info("Application starting...", "driver", cfg.Database.Driver, "port", cfg.Server.Port)

	return cfg, logger, nil
}

func initializeStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (customer.CustomerRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		logger.Info("Initializing database connection pool...")
		dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			logger.Info("Closing database connection pool...")
			dbPool.Close()
		}
		return postgres.NewCustomerRepository(dbPool, logger), closeFn, nil

	case config.DriverMongo:
		logger.Info("Initializing MongoDB client...")
		client, err := mongodb.NewClient(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			logger.Info("Disconnecting MongoDB client...")
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Error("MongoDB disconnect failed", "error", err)
			}
		}
		coll := mongodb.CustomerCollection(client, cfg.Database)
		return mongodb.NewCustomerRepository(coll, logger), closeFn, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory customer store; data is lost on restart")
		return memory.NewCustomerRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// initializeEvents never fails startup: an unreachable broker downgrades to
// the no-op publisher because events are best effort.
func initializeEvents(cfg *config.Config, logger *slog.Logger) (event.EventPublisher, func()) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled, customer events will not be published")
		return event.NoopEventPublisher{}, func() {}
	}

	conn, err := event.DialRabbitMQ(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, continuing without customer events", "error", err)
		return event.NoopEventPublisher{}, func() {}
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Warn("Failed to set up RabbitMQ publisher, continuing without customer events", "error", err)
		_ = conn.Close()
		return event.NoopEventPublisher{}, func() {}
	}

	return publisher, func() {
		logger.Info("Closing RabbitMQ connection...")
		if err := conn.Close(); err != nil {
			logger.Error("RabbitMQ connection close failed", "error", err)
		}
	}
}

// initializeRedisClient returns nil when the limiter should stay in process,
// including when Redis is configured but unreachable.
func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	rl := cfg.Server.RateLimit
	if !rl.Enabled || rl.RedisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(rl.RedisURL)
	if err != nil {
		logger.Warn("Invalid Redis URL, falling back to in-process rate limiting", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, falling back to in-process rate limiting", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}

	logger.Info("Connected to Redis for rate limiting", "addr", opts.Addr)
	return client
}

func closeRedisClient(client *redis.Client, logger *slog.Logger) {
	logger.Info("Closing Redis client...")
	if err := client.Close(); err != nil {
		logger.Error("Redis client close failed", "error", err)
	}
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

// handleShutdown returns false when the server died before any signal arrived.
func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) bool {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	clean := true
	serverDone := false
	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		serverDone = true
		if err != nil {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			clean = false
		}
		triggerReason = "server exited"
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(cronStopTimeout):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	if serverDone {
		logger.Info("Application shutdown process complete.")
		return clean
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(serverConfirmWait):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
	return clean
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, statsJob *batch.CustomerStatsJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	if _, err := statsJob.Schedule(c, cfg.Batch.CustomerStatsSchedule, cfg.Batch.CustomerStatsTimeout); err != nil {
		logger.Error("Failed to schedule customer stats job", slog.Any("error", err))
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
