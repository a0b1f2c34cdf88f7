package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration pairs the up and down scripts sharing a version prefix, e.g.
// 000002_create_replies.up.sql and 000002_create_replies.down.sql.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// MigrationLog is one row of migration_logs.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string { return "migration_logs" }

const migrationLogDDL = `CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// LoadMigrations reads the embedded scripts ordered by version. An up script
// without its down twin is an error; files that do not follow the
// <version>_<name> pattern are skipped with a warning.
func LoadMigrations() ([]Migration, error) {
	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil {
		return nil, err
	}

	out := make([]Migration, 0, len(ups))
	for _, file := range ups {
		stem := strings.TrimSuffix(strings.TrimPrefix(file, "migrations/"), ".up.sql")
		version, name, ok := splitMigrationStem(stem)
		if !ok {
			slog.Warn("ignoring migration file", slog.String("file", file))
			continue
		}
		if version < 0 {
			return nil, fmt.Errorf("migration %s: version is not a number", file)
		}

		up, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return nil, err
		}
		down, err := fs.ReadFile(migrationFS, "migrations/"+stem+".down.sql")
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", stem, err)
		}
		out = append(out, Migration{Version: version, Name: name, UpScript: string(up), DownScript: string(down)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// splitMigrationStem parses "000001_create_pins". A stem without an
// underscore is not a migration; a non-numeric prefix yields version -1.
func splitMigrationStem(stem string) (int, string, bool) {
	prefix, name, found := strings.Cut(stem, "_")
	if !found || name == "" {
		return 0, "", false
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return -1, name, true
	}
	return v, name, true
}

// RunMigrations applies every embedded migration newer than what
// migration_logs records. Each script and its log row commit together.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	all, err := LoadMigrations()
	if err != nil {
		return err
	}

	conn := db.WithContext(ctx)
	if err := conn.Exec(migrationLogDDL).Error; err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}

	var done []int
	if err := conn.Model(&MigrationLog{}).Pluck("version", &done).Error; err != nil {
		return fmt.Errorf("read migration_logs: %w", err)
	}
	applied := make(map[int]struct{}, len(done))
	for _, v := range done {
		applied[v] = struct{}{}
	}

	for _, m := range all {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		slog.InfoContext(ctx, "applying migration", slog.String("migration", m.String()))
		err := conn.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", m, err)
		}
	}
	return nil
}
