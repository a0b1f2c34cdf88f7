// Package testutil provides shared fixtures for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"posterboard/internal/config"
	"posterboard/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TeamSecret is the team secret in Config.
const TeamSecret = "let-me-in"

// Config returns a development config backed by a temporary sqlite file and
// the in-memory blob store.
func Config(t testing.TB) *config.Config {
	t.Helper()
	return &config.Config{
		Port:          "0",
		Env:           "development",
		FeatureFlags:  "reply_counts=on",
		DBDriver:      "sqlite",
		SQLitePath:    filepath.Join(t.TempDir(), "board.db"),
		DBAutoSchema:  true,
		BlobDriver:    "memory",
		BlobBucket:    "posters",
		BlobPublicURL: "http://blob.local/posters",
		MaxPosterMB:   2,
		TeamSecret:    TeamSecret,
		JWTSecret:     "test-jwt-secret",
		TeamTokenTTL:  time.Hour,
		PostCooldown:  10 * time.Second,
		DeletePolicy:  config.DeletePolicyOpen,
	}
}

// SQLite opens a migrated sqlite database in a temporary directory.
func SQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Pin{}, &models.Reply{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// PNG encodes a w x h image with a diagonal stroke so it does not compress to
// nothing.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
