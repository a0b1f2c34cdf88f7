package repository

import (
	"context"

	"posterboard/internal/models"
	"posterboard/internal/observability"

	"gorm.io/gorm"
)

// ReplyRepository defines interface for reply operations
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.Reply) error
	// ListByPin returns the thread oldest first.
	ListByPin(ctx context.Context, pinID string) ([]models.Reply, error)
	CountByPin(ctx context.Context, pinID string) (int64, error)
}

type replyRepository struct {
	db *gorm.DB
}

// NewReplyRepository creates a new ReplyRepository
func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) Create(ctx context.Context, reply *models.Reply) error {
	defer observability.TrackQuery("create", "replies")()
	return r.db.WithContext(ctx).Omit("Pin").Create(reply).Error
}

func (r *replyRepository) ListByPin(ctx context.Context, pinID string) ([]models.Reply, error) {
	defer observability.TrackQuery("list_by_pin", "replies")()
	var replies []models.Reply
	err := r.db.WithContext(ctx).
		Where("pin_id = ?", pinID).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}

func (r *replyRepository) CountByPin(ctx context.Context, pinID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Reply{}).Where("pin_id = ?", pinID).Count(&n).Error
	return n, err
}
