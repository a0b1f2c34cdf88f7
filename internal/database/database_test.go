package database

import (
	"context"
	"log/slog"
	"testing"

	"posterboard/internal/config"
	"posterboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create_pins", migrations[0].Name)
	assert.Equal(t, "000002_create_replies", migrations[1].String())
	assert.Contains(t, migrations[1].UpScript, "ON DELETE CASCADE")
	assert.Contains(t, migrations[1].DownScript, "DROP TABLE")
}

func TestDialector(t *testing.T) {
	assert.Equal(t, "sqlite", Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"}).Name())
	assert.Equal(t, "postgres", Dialector(&config.Config{DBDriver: "postgres"}).Name())
}

func TestConnectSQLiteCascades(t *testing.T) {
	cfg := &config.Config{
		DBDriver:     "sqlite",
		SQLitePath:   "file::memory:",
		DBAutoSchema: true,
	}

	db, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, Ping(context.Background(), db))

	pin := models.Pin{X: 0.5, Y: 0.5, Body: "hello"}
	require.NoError(t, db.Create(&pin).Error)
	require.NoError(t, db.Create(&models.Reply{PinID: pin.ID, Body: "hi"}).Error)

	require.NoError(t, db.Delete(&models.Pin{}, "id = ?", pin.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.Reply{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGormLoggerLevels(t *testing.T) {
	l := NewQueryLogger(slog.Default())
	quiet := l.LogMode(logger.Silent).(*QueryLogger)
	assert.Equal(t, logger.Silent, quiet.Level())
	assert.Equal(t, logger.Warn, l.Level())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: quiet})
	require.NoError(t, err)
	assert.Error(t, db.Exec("SELECT * FROM missing_table").Error)
}

func TestSplitMigrationStem(t *testing.T) {
	v, name, ok := splitMigrationStem("000002_create_replies")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, "create_replies", name)

	_, _, ok = splitMigrationStem("readme")
	assert.False(t, ok)

	v, _, ok = splitMigrationStem("abc_create_pins")
	assert.True(t, ok)
	assert.Equal(t, -1, v)
}
