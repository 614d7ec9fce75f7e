package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/musicmoon/marketplace/internal/config"
	"github.com/musicmoon/marketplace/internal/media"
)

// Backends holds the optional external services. A nil field means the
// service is not configured and callers fall back to in-memory stand-ins.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
	Media media.Store
}

// Connect opens every backend the configuration names. Postgres is migrated
// on connect.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.DatabaseURL != "" {
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL, cfg.CallTimeout)
		if err != nil {
			return nil, err
		}
		b.DB = db
		if err := MigratePostgres(ctx, db, logger); err != nil {
			b.Close(logger)
			return nil, err
		}
	}

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL, cfg.CallTimeout)
		if err != nil {
			b.Close(logger)
			return nil, err
		}
		b.Cache = cache
	}

	if cfg.S3Configured() {
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			b.Close(logger)
			return nil, fmt.Errorf("object storage: %w", err)
		}
		b.Media = media.NewS3Store(client, cfg.S3Bucket, cfg.S3PublicURL)
	}

	return b, nil
}

// Close releases every open backend.
func (b *Backends) Close(logger *slog.Logger) {
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	if b.DB != nil {
		b.DB.Close()
	}
}
