package database

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultConnTimeout = 5 * time.Second
	defaultMaxRetries  = 3
	defaultRetryWait   = time.Second
)

type DBConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.PoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.PoolSize))
	}
	opts.SetConnectTimeout(defaultConnTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	// The driver connects lazily, so ping with retries to surface an
	// unreachable server at startup instead of on the first command.
	var pingErr error
	for i := 0; i < defaultMaxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
		pingErr = client.Ping(pingCtx, nil)
		cancel()
		if pingErr == nil {
			break
		}
		time.Sleep(defaultRetryWait)
	}
	if pingErr != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", defaultMaxRetries, pingErr)
	}

	return &DB{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Collection returns a handle to the named collection.
func (d *DB) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// EnsureIndexes creates the indexes the repositories rely on. Safe to call
// on every startup; existing indexes are left untouched.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		"servers": {
			{Keys: bson.D{{Key: "uid", Value: 1}}, Options: unique},
		},
		"users": {
			{Keys: bson.D{{Key: "uid", Value: 1}}, Options: unique},
		},
		"trades": {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "server", Value: 1}}},
		},
		"events": {
			{Keys: bson.D{{Key: "due_at", Value: 1}}},
			{Keys: bson.D{{Key: "trade_name", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := d.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", coll, err)
		}
	}

	slog.Info("Database indexes ensured",
		slog.String("type", "db"),
		slog.Int("collections", len(indexes)))
	return nil
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}
