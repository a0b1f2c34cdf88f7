// Command seed fills the board database with demo pins and replies.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"posterboard/internal/config"
	"posterboard/internal/database"
	"posterboard/internal/observability"
	"posterboard/internal/seed"
)

func main() {
	numPins := flag.Int("pins", 40, "Number of pins to create")
	maxReplies := flag.Int("replies", 4, "Maximum replies per pin")
	clean := flag.Bool("clean", false, "Delete every pin and reply before seeding")
	preset := flag.String("preset", "", "YAML preset file to apply instead of random data")
	seedValue := flag.Int64("seed", 0, "Random seed for reproducible data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	observability.InitLogging(cfg.Env)
	if cfg.IsProduction() {
		slog.Error("Refusing to seed a production database")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	s := seed.NewSeeder(db, *seedValue)

	var stats seed.Stats
	if *preset != "" {
		p, err := seed.LoadPreset(*preset)
		if err != nil {
			slog.Error("Failed to load preset", "error", err)
			os.Exit(1)
		}
		if *clean {
			if err := s.ClearAll(ctx); err != nil {
				slog.Error("Cleanup failed", "error", err)
				os.Exit(1)
			}
		}
		stats, err = s.ApplyPreset(ctx, p)
		if err != nil {
			slog.Error("Preset seeding failed", "error", err)
			os.Exit(1)
		}
	} else {
		stats, err = s.Run(ctx, seed.Options{NumPins: *numPins, MaxReplies: *maxReplies, Clean: *clean})
		if err != nil {
			slog.Error("Seeding failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Seeding complete", "pins", stats.Pins, "replies", stats.Replies)
}
