package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reply is a threaded follow-up attached to exactly one pin.
type Reply struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PinID      string    `gorm:"type:varchar(36);not null;index" json:"pin_id"`
	AuthorName string    `gorm:"type:varchar(120)" json:"author_name"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`

	Pin *Pin `gorm:"foreignKey:PinID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// DisplayAuthor returns the author name or AnonymousAuthor when it is blank.
func (r Reply) DisplayAuthor() string {
	return displayAuthor(r.AuthorName)
}
