// Package database handles database connections and migrations.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"posterboard/internal/config"
	"posterboard/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialector picks the GORM driver for cfg.
func Dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DBDriver == "sqlite" {
		// foreign keys are off by default in SQLite; replies rely on the cascade
		return sqlite.Open(cfg.SQLitePath + "?_foreign_keys=on")
	}

	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		sslMode,
	)
	return postgres.Open(dsn)
}

// Connect opens the database configured in cfg, brings the schema up to date
// when DB_AUTO_MIGRATE is set, and returns the gorm DB instance.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(cfg), &gorm.Config{
		Logger: NewQueryLogger(slog.Default()),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	slog.InfoContext(ctx, "board database open", slog.String("driver", cfg.DBDriver))

	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}

	if cfg.DBAutoSchema {
		if err := Migrate(ctx, db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate brings the schema up to date. The SQL files are Postgres dialect,
// so SQLite gets its tables from the models instead.
func Migrate(ctx context.Context, db *gorm.DB) error {
	mode, run := "sql", func() error { return RunMigrations(ctx, db) }
	if db.Dialector.Name() == "sqlite" {
		mode, run = "auto", func() error { return AutoMigrate(db) }
	}
	if err := run(); err != nil {
		return fmt.Errorf("migrate (%s): %w", mode, err)
	}
	slog.InfoContext(ctx, "board schema ready", slog.String("mode", mode))
	return nil
}

// AutoMigrate creates the board tables from the models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Pin{}, &models.Reply{})
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// one writer avoids "database is locked" under concurrent handlers
		sqlDB.SetMaxOpenConns(1)
		return nil
	}
	if cfg.DBMaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpen)
	}
	if cfg.DBMaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdle)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return nil
}

// Ping checks that the database answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
