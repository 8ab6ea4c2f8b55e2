package main

import (
	"context"
	"customer-api/internal/batch"
	"customer-api/internal/config"
	"customer-api/internal/domain/customer"
	"customer-api/internal/event"
	"customer-api/internal/infrastructure/database/memory"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitializeApp(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("SERVER_PORT", "9191")

	cfg, logger, err := initializeApp(t.TempDir())

	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.Equal(t, config.DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestInitializeAppRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "cassandra")

	_, _, err := initializeApp(t.TempDir())

	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestInitializeStore(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverMemory}}

		repo, closeFn, err := initializeStore(ctx, cfg, logger)

		require.NoError(t, err)
		assert.IsType(t, &memory.CustomerRepository{}, repo)
		assert.NotPanics(t, closeFn)
	})

	t.Run("postgres without url", func(t *testing.T) {
		cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverPostgres}}

		repo, _, err := initializeStore(ctx, cfg, logger)

		assert.Nil(t, repo)
		assert.ErrorContains(t, err, "database URL is empty")
	})

	t.Run("mongo without url", func(t *testing.T) {
		cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverMongo}}

		repo, _, err := initializeStore(ctx, cfg, logger)

		assert.Nil(t, repo)
		assert.ErrorContains(t, err, "database URL is empty")
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}}

		_, _, err := initializeStore(ctx, cfg, logger)

		assert.ErrorContains(t, err, `unsupported database driver "sqlite"`)
	})
}

func TestInitializeEvents(t *testing.T) {
	logger := discardLogger()

	t.Run("disabled", func(t *testing.T) {
		pub, closeFn := initializeEvents(&config.Config{}, logger)

		assert.IsType(t, event.NoopEventPublisher{}, pub)
		assert.NotPanics(t, closeFn)
	})

	t.Run("enabled but unreachable falls back to noop", func(t *testing.T) {
		cfg := &config.Config{RabbitMQ: config.RabbitMQConfig{Enabled: true, URL: ""}}

		pub, closeFn := initializeEvents(cfg, logger)

		assert.IsType(t, event.NoopEventPublisher{}, pub)
		assert.NotPanics(t, closeFn)
	})
}

func TestInitializeRedisClient(t *testing.T) {
	logger := discardLogger()

	t.Run("disabled rate limiting needs no client", func(t *testing.T) {
		cfg := &config.Config{Server: config.ServerConfig{RateLimit: config.RateLimitConfig{RedisURL: "redis://localhost:6379"}}}
		assert.Nil(t, initializeRedisClient(cfg, logger))
	})

	t.Run("empty url keeps limiting in process", func(t *testing.T) {
		cfg := &config.Config{Server: config.ServerConfig{RateLimit: config.RateLimitConfig{Enabled: true}}}
		assert.Nil(t, initializeRedisClient(cfg, logger))
	})

	t.Run("invalid url", func(t *testing.T) {
		cfg := &config.Config{Server: config.ServerConfig{RateLimit: config.RateLimitConfig{Enabled: true, RedisURL: "http://not-redis"}}}
		assert.Nil(t, initializeRedisClient(cfg, logger))
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := &config.Config{Server: config.ServerConfig{RateLimit: config.RateLimitConfig{Enabled: true, RedisURL: "redis://" + addr}}}
		assert.Nil(t, initializeRedisClient(cfg, logger))
	})

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)

		cfg := &config.Config{Server: config.ServerConfig{RateLimit: config.RateLimitConfig{Enabled: true, RedisURL: "redis://" + mr.Addr()}}}
		client := initializeRedisClient(cfg, logger)
		require.NotNil(t, client)
		assert.NotPanics(t, func() { closeRedisClient(client, logger) })
	})
}

func TestStartBatchJobs(t *testing.T) {
	logger := discardLogger()
	job := batch.NewCustomerStatsJob(memoryLister{}, logger)
	cfg := &config.Config{Batch: config.BatchConfig{CustomerStatsSchedule: "*/5 * * * *", CustomerStatsTimeout: time.Second}}

	c := startBatchJobs(cfg, logger, job)
	defer c.Stop()

	assert.Len(t, c.Entries(), 1)
}

func TestStartBatchJobsWithInvalidSchedule(t *testing.T) {
	logger := discardLogger()
	job := batch.NewCustomerStatsJob(memoryLister{}, logger)
	cfg := &config.Config{Batch: config.BatchConfig{CustomerStatsSchedule: "not a schedule"}}

	c := startBatchJobs(cfg, logger, job)
	defer c.Stop()

	assert.Empty(t, c.Entries())
}

func TestHandleShutdownOnSignal(t *testing.T) {
	logger := discardLogger()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.NewServeMux()}
	serverErrors := make(chan error, 1)
	go func() {
		err := srv.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serverErrors <- err
	}()

	shutdownChan := make(chan os.Signal, 1)
	shutdownChan <- syscall.SIGTERM

	c := cron.New()
	c.Start()

	assert.True(t, handleShutdown(srv, c, shutdownChan, serverErrors, logger))
}

func TestHandleShutdownOnServerFailure(t *testing.T) {
	logger := discardLogger()
	serverErrors := make(chan error, 1)
	serverErrors <- errors.New("listen tcp :80: bind: permission denied")

	c := cron.New()
	c.Start()

	assert.False(t, handleShutdown(&http.Server{}, c, make(chan os.Signal), serverErrors, logger))
}

type memoryLister struct{}

func (memoryLister) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	return memory.NewCustomerRepository().FindAll(ctx)
}
