// Package bootstrap opens the external dependencies the board runs on.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"posterboard/internal/cache"
	"posterboard/internal/config"
	"posterboard/internal/database"
	"posterboard/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps holds opened infrastructure handles. Redis is optional: when it cannot
// be reached the board runs single-instance without cooldowns or cache.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
	Blobs storage.BlobStore
}

// Open connects the database, Redis and the blob store.
func Open(ctx context.Context, cfg *config.Config) (*Deps, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			if cfg.IsProduction() {
				closeDB(db)
				return nil, fmt.Errorf("redis connection failed: %w", err)
			}
			slog.WarnContext(ctx, "redis unavailable, continuing without it", "error", err)
			rdb = nil
		}
	}

	blobs, err := OpenBlobStore(ctx, cfg)
	if err != nil {
		closeDB(db)
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	return &Deps{DB: db, Redis: rdb, Blobs: blobs}, nil
}

// OpenBlobStore returns the configured poster store, creating the bucket
// when it does not exist.
func OpenBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.BlobDriver {
	case "memory":
		return storage.NewMemory(cfg.PublicBlobBase()), nil
	case "minio", "":
		store, err := storage.NewMinio(storage.MinioConfig{
			Endpoint:   cfg.BlobEndpoint,
			AccessKey:  cfg.BlobAccessKey,
			SecretKey:  cfg.BlobSecretKey,
			UseSSL:     cfg.BlobUseSSL,
			Bucket:     cfg.BlobBucket,
			PublicBase: cfg.PublicBlobBase(),
		})
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("blob bucket %s: %w", cfg.BlobBucket, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}

// Close releases everything Open acquired.
func (d *Deps) Close() error {
	var errs []error
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
