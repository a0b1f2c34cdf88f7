package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"posterboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// pinRepoStub is a stub for repository.PinRepository.
type pinRepoStub struct {
	createFn         func(context.Context, *models.Pin) error
	getByIDFn        func(context.Context, string) (*models.Pin, error)
	listFn           func(context.Context) ([]models.Pin, error)
	listNewestFn     func(context.Context) ([]models.Pin, error)
	listWithCountsFn func(context.Context) ([]models.Pin, error)
	deleteFn         func(context.Context, string) (int64, error)
	countFn          func(context.Context) (int64, error)
}

func (s *pinRepoStub) Create(ctx context.Context, pin *models.Pin) error {
	return s.createFn(ctx, pin)
}
func (s *pinRepoStub) GetByID(ctx context.Context, id string) (*models.Pin, error) {
	return s.getByIDFn(ctx, id)
}
func (s *pinRepoStub) List(ctx context.Context) ([]models.Pin, error) {
	return s.listFn(ctx)
}
func (s *pinRepoStub) ListNewest(ctx context.Context) ([]models.Pin, error) {
	return s.listNewestFn(ctx)
}
func (s *pinRepoStub) ListNewestWithReplyCounts(ctx context.Context) ([]models.Pin, error) {
	return s.listWithCountsFn(ctx)
}
func (s *pinRepoStub) Delete(ctx context.Context, id string) (int64, error) {
	return s.deleteFn(ctx, id)
}
func (s *pinRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopPinRepo() *pinRepoStub {
	return &pinRepoStub{
		createFn:         func(_ context.Context, _ *models.Pin) error { return nil },
		getByIDFn:        func(_ context.Context, id string) (*models.Pin, error) { return &models.Pin{ID: id}, nil },
		listFn:           func(_ context.Context) ([]models.Pin, error) { return nil, nil },
		listNewestFn:     func(_ context.Context) ([]models.Pin, error) { return nil, nil },
		listWithCountsFn: func(_ context.Context) ([]models.Pin, error) { return nil, nil },
		deleteFn:         func(_ context.Context, _ string) (int64, error) { return 1, nil },
		countFn:          func(_ context.Context) (int64, error) { return 0, nil },
	}
}

// replyRepoStub is a stub for repository.ReplyRepository.
type replyRepoStub struct {
	createFn     func(context.Context, *models.Reply) error
	listByPinFn  func(context.Context, string) ([]models.Reply, error)
	countByPinFn func(context.Context, string) (int64, error)
}

func (s *replyRepoStub) Create(ctx context.Context, reply *models.Reply) error {
	return s.createFn(ctx, reply)
}
func (s *replyRepoStub) ListByPin(ctx context.Context, pinID string) ([]models.Reply, error) {
	return s.listByPinFn(ctx, pinID)
}
func (s *replyRepoStub) CountByPin(ctx context.Context, pinID string) (int64, error) {
	return s.countByPinFn(ctx, pinID)
}

func noopReplyRepo() *replyRepoStub {
	return &replyRepoStub{
		createFn:     func(_ context.Context, _ *models.Reply) error { return nil },
		listByPinFn:  func(_ context.Context, _ string) ([]models.Reply, error) { return nil, nil },
		countByPinFn: func(_ context.Context, _ string) (int64, error) { return 0, nil },
	}
}

type published struct {
	eventType string
	topic     string
	payload   any
}

// publisherSpy records events instead of delivering them.
type publisherSpy struct {
	mu     sync.Mutex
	events []published
}

func (p *publisherSpy) Publish(_ context.Context, eventType, topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{eventType, topic, payload})
}

func (p *publisherSpy) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

var errNotFound = gorm.ErrRecordNotFound
