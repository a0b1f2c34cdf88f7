// Package models contains data structures for the board's domain models.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnonymousAuthor is shown for pins and replies posted without a name.
const AnonymousAuthor = "Anonymous"

// Pin is a comment anchored to a point on the poster. X and Y are fractions
// of the poster's unscaled width and height, origin top-left.
type Pin struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	X          float64   `gorm:"not null" json:"x"`
	Y          float64   `gorm:"not null" json:"y"`
	AuthorName string    `gorm:"type:varchar(120)" json:"author_name"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	// ReplyCount is not persisted; computed by the aggregated list query
	ReplyCount *int64 `gorm:"->;-:migration" json:"reply_count,omitempty"`
}

// BeforeCreate assigns a server-side id.
func (p *Pin) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// DisplayAuthor returns the author name or AnonymousAuthor when it is blank.
func (p Pin) DisplayAuthor() string {
	return displayAuthor(p.AuthorName)
}

func displayAuthor(name string) string {
	if strings.TrimSpace(name) == "" {
		return AnonymousAuthor
	}
	return name
}
