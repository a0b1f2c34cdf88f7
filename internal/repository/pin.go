// Package repository provides data access layer implementations for the board.
package repository

import (
	"context"

	"posterboard/internal/models"
	"posterboard/internal/observability"

	"gorm.io/gorm"
)

// PinRepository defines interface for pin operations
type PinRepository interface {
	Create(ctx context.Context, pin *models.Pin) error
	GetByID(ctx context.Context, id string) (*models.Pin, error)
	List(ctx context.Context) ([]models.Pin, error)
	ListNewest(ctx context.Context) ([]models.Pin, error)
	ListNewestWithReplyCounts(ctx context.Context) ([]models.Pin, error)
	// Delete removes the pin and reports how many rows were affected.
	Delete(ctx context.Context, id string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type pinRepository struct {
	db *gorm.DB
}

// NewPinRepository creates a new PinRepository
func NewPinRepository(db *gorm.DB) PinRepository {
	return &pinRepository{db: db}
}

func (r *pinRepository) Create(ctx context.Context, pin *models.Pin) error {
	defer observability.TrackQuery("create", "pins")()
	return r.db.WithContext(ctx).Create(pin).Error
}

func (r *pinRepository) GetByID(ctx context.Context, id string) (*models.Pin, error) {
	defer observability.TrackQuery("get", "pins")()
	var pin models.Pin
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pin).Error; err != nil {
		return nil, err
	}
	return &pin, nil
}

// List returns every pin in storage order.
func (r *pinRepository) List(ctx context.Context) ([]models.Pin, error) {
	defer observability.TrackQuery("list", "pins")()
	var pins []models.Pin
	err := r.db.WithContext(ctx).Find(&pins).Error
	return pins, err
}

func (r *pinRepository) ListNewest(ctx context.Context) ([]models.Pin, error) {
	defer observability.TrackQuery("list_newest", "pins")()
	var pins []models.Pin
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&pins).Error
	return pins, err
}

// ListNewestWithReplyCounts fills ReplyCount from a correlated subquery.
// It fails when the replies table is not provisioned.
func (r *pinRepository) ListNewestWithReplyCounts(ctx context.Context) ([]models.Pin, error) {
	defer observability.TrackQuery("list_with_counts", "pins")()
	var pins []models.Pin
	err := r.db.WithContext(ctx).
		Model(&models.Pin{}).
		Select("pins.*, (SELECT COUNT(*) FROM replies WHERE replies.pin_id = pins.id) AS reply_count").
		Order("pins.created_at DESC").
		Find(&pins).Error
	return pins, err
}

func (r *pinRepository) Delete(ctx context.Context, id string) (int64, error) {
	defer observability.TrackQuery("delete", "pins")()
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Pin{})
	return res.RowsAffected, res.Error
}

func (r *pinRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Pin{}).Count(&n).Error
	return n, err
}
