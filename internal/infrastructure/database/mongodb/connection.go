package mongodb

import (
	"context"
	"customer-api/internal/config"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

func NewClient(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*mongo.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is empty in configuration")
	}

	clientOpts := options.Client().
		ApplyURI(cfg.URL).
		SetConnectTimeout(connectTimeout).
		SetAppName("customer-api")

	logger.Info("Connecting to MongoDB...")
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("unable to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		logger.Error("Failed to ping MongoDB", slog.Any("error", err))
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo on connect: %w", err)
	}

	logger.Info("Successfully connected to MongoDB.", slog.String("db", cfg.Name))
	return client, nil
}

// CustomerCollection resolves the customers collection named by the configuration.
func CustomerCollection(client *mongo.Client, cfg config.DatabaseConfig) *mongo.Collection {
	return client.Database(cfg.Name).Collection(cfg.Collection)
}
