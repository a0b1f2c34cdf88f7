// Package seed fills a board with demo pins and replies for development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"posterboard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// maxBodyRunes matches the composer limit so seeded comments look real.
const maxBodyRunes = 300

// Options configuration for the seeder
type Options struct {
	NumPins    int
	MaxReplies int
	Clean      bool
}

// Preset is a hand-written board loaded from YAML.
type Preset struct {
	Name string      `yaml:"name"`
	Pins []PresetPin `yaml:"pins"`
}

type PresetPin struct {
	X       float64       `yaml:"x"`
	Y       float64       `yaml:"y"`
	Author  string        `yaml:"author"`
	Body    string        `yaml:"body"`
	Replies []PresetReply `yaml:"replies"`
}

type PresetReply struct {
	Author string `yaml:"author"`
	Body   string `yaml:"body"`
}

// LoadPreset reads a preset file.
func LoadPreset(path string) (*Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", path, err)
	}
	for i, pin := range p.Pins {
		if pin.X < 0 || pin.X > 1 || pin.Y < 0 || pin.Y > 1 {
			return nil, fmt.Errorf("preset %s: pin %d is off the poster (%g, %g)", path, i, pin.X, pin.Y)
		}
		if pin.Body == "" {
			return nil, fmt.Errorf("preset %s: pin %d has no body", path, i)
		}
	}
	return &p, nil
}

// Seeder writes demo data straight through gorm.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSeeder creates a seeder. A non-zero seed makes the generated data
// reproducible.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{db: db, faker: gofakeit.New(seed), now: time.Now}
}

// ClearAll removes every reply and pin.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.Pin{}).Error
	})
}

// Stats counts what a seeding run created.
type Stats struct {
	Pins    int
	Replies int
}

// Run creates opts.NumPins random pins with up to opts.MaxReplies replies each.
func (s *Seeder) Run(ctx context.Context, opts Options) (Stats, error) {
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return Stats{}, fmt.Errorf("clean: %w", err)
		}
	}

	preset := &Preset{Name: "random"}
	for i := 0; i < opts.NumPins; i++ {
		pin := PresetPin{
			X:      s.faker.Float64Range(0.02, 0.98),
			Y:      s.faker.Float64Range(0.02, 0.98),
			Author: s.author(),
			Body:   s.body(),
		}
		if opts.MaxReplies > 0 {
			for r := s.faker.IntRange(0, opts.MaxReplies); r > 0; r-- {
				pin.Replies = append(pin.Replies, PresetReply{Author: s.author(), Body: s.body()})
			}
		}
		preset.Pins = append(preset.Pins, pin)
	}
	return s.ApplyPreset(ctx, preset)
}

// ApplyPreset writes the preset's pins and replies in one transaction.
// Creation times are spread backwards from now so the newest-first list
// keeps the preset order.
func (s *Seeder) ApplyPreset(ctx context.Context, p *Preset) (Stats, error) {
	var stats Stats
	base := s.now().Add(-time.Duration(len(p.Pins)) * time.Minute)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, pp := range p.Pins {
			created := base.Add(time.Duration(i) * time.Minute)
			pin := &models.Pin{
				X:          pp.X,
				Y:          pp.Y,
				AuthorName: pp.Author,
				Body:       pp.Body,
				CreatedAt:  created,
			}
			if err := tx.Create(pin).Error; err != nil {
				return fmt.Errorf("pin %d: %w", i, err)
			}
			stats.Pins++

			for j, pr := range pp.Replies {
				reply := &models.Reply{
					PinID:      pin.ID,
					AuthorName: pr.Author,
					Body:       pr.Body,
					CreatedAt:  created.Add(time.Duration(j+1) * time.Second),
				}
				if err := tx.Create(reply).Error; err != nil {
					return fmt.Errorf("pin %d reply %d: %w", i, j, err)
				}
				stats.Replies++
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	slog.Info("seeded board", "preset", p.Name, "pins", stats.Pins, "replies", stats.Replies)
	return stats, nil
}

func (s *Seeder) author() string {
	// some comments stay anonymous
	if s.faker.Number(1, 5) == 1 {
		return ""
	}
	return s.faker.FirstName()
}

func (s *Seeder) body() string {
	body := s.faker.Sentence(s.faker.Number(3, 14))
	if r := []rune(body); len(r) > maxBodyRunes {
		body = string(r[:maxBodyRunes])
	}
	return body
}
