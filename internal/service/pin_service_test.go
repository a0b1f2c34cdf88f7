package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"posterboard/internal/config"
	"posterboard/internal/featureflags"
	"posterboard/internal/models"
	"posterboard/internal/notifications"
	"posterboard/internal/observability"
	"posterboard/internal/validation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countsOn() *featureflags.Manager {
	return featureflags.NewManager("reply_counts=on")
}

func TestPinService_CreatePin_Validation(t *testing.T) {
	t.Parallel()

	called := false
	repo := noopPinRepo()
	repo.createFn = func(_ context.Context, _ *models.Pin) error {
		called = true
		return nil
	}
	svc := NewPinService(repo, countsOn(), config.DeletePolicyOpen, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreatePinInput
	}{
		{"empty body", CreatePinInput{X: 0.5, Y: 0.5}},
		{"whitespace body", CreatePinInput{X: 0.5, Y: 0.5, Body: "   \n\t"}},
		{"body too long", CreatePinInput{X: 0.5, Y: 0.5, Body: strings.Repeat("x", validation.MaxBodyBytes+1)}},
		{"NaN x", CreatePinInput{X: math.NaN(), Y: 0.5, Body: "hi"}},
		{"Inf y", CreatePinInput{X: 0.5, Y: math.Inf(1), Body: "hi"}},
		{"author too long", CreatePinInput{X: 0.5, Y: 0.5, Body: "hi", AuthorName: strings.Repeat("a", validation.MaxAuthorRunes+1)}},
	}
	for _, tt := range tests {
		_, err := svc.CreatePin(ctx, tt.in)
		assertAppErrorCode(t, err, models.CodeValidation)
	}
	assert.False(t, called, "repository must not be reached with an invalid pin")
}

func TestPinService_CreatePin_Success(t *testing.T) {
	t.Parallel()

	repo := noopPinRepo()
	var stored *models.Pin
	repo.createFn = func(_ context.Context, p *models.Pin) error {
		p.ID = "pin-1"
		stored = p
		return nil
	}
	spy := &publisherSpy{}
	svc := NewPinService(repo, countsOn(), config.DeletePolicyOpen, spy)

	pin, err := svc.CreatePin(context.Background(), CreatePinInput{
		X:          0.5,
		Y:          0.25,
		AuthorName: "  ",
		Body:       "  Great show!  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "pin-1", pin.ID)
	assert.Equal(t, "Great show!", stored.Body)
	assert.Equal(t, "", stored.AuthorName)
	assert.Equal(t, models.AnonymousAuthor, pin.DisplayAuthor())
	assert.InDelta(t, 0.5, pin.X, 1e-12)
	assert.InDelta(t, 0.25, pin.Y, 1e-12)

	events := spy.all()
	require.Len(t, events, 1)
	assert.Equal(t, notifications.EventPinCreated, events[0].eventType)
	assert.Equal(t, notifications.TopicPins, events[0].topic)
}

func TestPinService_CreatePin_RepoErrorNotPublished(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("db down")
	repo := noopPinRepo()
	repo.createFn = func(_ context.Context, _ *models.Pin) error { return repoErr }
	spy := &publisherSpy{}
	svc := NewPinService(repo, countsOn(), config.DeletePolicyOpen, spy)

	_, err := svc.CreatePin(context.Background(), CreatePinInput{Body: "hi"})
	assert.ErrorIs(t, err, repoErr)
	assert.Empty(t, spy.all())
}

func TestPinService_ListPinsWithReplyCounts(t *testing.T) {
	t.Parallel()

	withCounts := []models.Pin{{ID: "a"}}
	plain := []models.Pin{{ID: "b"}}

	t.Run("aggregate succeeds", func(t *testing.T) {
		t.Parallel()
		repo := noopPinRepo()
		repo.listWithCountsFn = func(_ context.Context) ([]models.Pin, error) { return withCounts, nil }
		svc := NewPinService(repo, countsOn(), "", nil)

		pins, err := svc.ListPinsWithReplyCounts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, withCounts, pins)
	})

	t.Run("aggregate fails falls back without counts", func(t *testing.T) {
		t.Parallel()
		repo := noopPinRepo()
		repo.listWithCountsFn = func(_ context.Context) ([]models.Pin, error) {
			return nil, errors.New("no such table: replies")
		}
		repo.listNewestFn = func(_ context.Context) ([]models.Pin, error) { return plain, nil }
		svc := NewPinService(repo, countsOn(), "", nil)

		before := testutil.ToFloat64(observability.ReplyCountFallbacks.WithLabelValues("missing_schema"))
		pins, err := svc.ListPinsWithReplyCounts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, plain, pins)
		assert.Nil(t, pins[0].ReplyCount)
		assert.Equal(t, before+1, testutil.ToFloat64(observability.ReplyCountFallbacks.WithLabelValues("missing_schema")))
	})

	t.Run("flag off skips aggregate", func(t *testing.T) {
		t.Parallel()
		repo := noopPinRepo()
		repo.listWithCountsFn = func(_ context.Context) ([]models.Pin, error) {
			t.Error("aggregate must not run when reply_counts is off")
			return nil, nil
		}
		repo.listNewestFn = func(_ context.Context) ([]models.Pin, error) { return plain, nil }
		svc := NewPinService(repo, featureflags.NewManager("reply_counts=off"), "", nil)

		pins, err := svc.ListPinsWithReplyCounts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, plain, pins)
	})

	t.Run("fallback error surfaces", func(t *testing.T) {
		t.Parallel()
		repoErr := errors.New("db down")
		repo := noopPinRepo()
		repo.listWithCountsFn = func(_ context.Context) ([]models.Pin, error) { return nil, repoErr }
		repo.listNewestFn = func(_ context.Context) ([]models.Pin, error) { return nil, repoErr }
		svc := NewPinService(repo, countsOn(), "", nil)

		_, err := svc.ListPinsWithReplyCounts(context.Background())
		assert.ErrorIs(t, err, repoErr)
	})
}

func TestPinService_DeletePin(t *testing.T) {
	t.Parallel()

	t.Run("zero rows is delete denied", func(t *testing.T) {
		t.Parallel()
		repo := noopPinRepo()
		repo.deleteFn = func(_ context.Context, _ string) (int64, error) { return 0, nil }
		spy := &publisherSpy{}
		svc := NewPinService(repo, countsOn(), config.DeletePolicyOpen, spy)

		err := svc.DeletePin(context.Background(), DeletePinInput{ID: "p1"})
		assertAppErrorCode(t, err, models.CodeDeleteDenied)
		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "Delete was blocked. A policy change is required to delete pins.", appErr.Message)
		assert.Equal(t, 403, models.StatusFor(err))
		assert.Empty(t, spy.all())
	})

	t.Run("success publishes", func(t *testing.T) {
		t.Parallel()
		spy := &publisherSpy{}
		svc := NewPinService(noopPinRepo(), countsOn(), config.DeletePolicyOpen, spy)

		require.NoError(t, svc.DeletePin(context.Background(), DeletePinInput{ID: "p1"}))
		events := spy.all()
		require.Len(t, events, 1)
		assert.Equal(t, notifications.EventPinDeleted, events[0].eventType)
		assert.Equal(t, PinDeletedPayload{ID: "p1"}, events[0].payload)
	})

	t.Run("team policy without token never reaches the store", func(t *testing.T) {
		t.Parallel()
		repo := noopPinRepo()
		repo.deleteFn = func(_ context.Context, _ string) (int64, error) {
			t.Error("store must not be called")
			return 1, nil
		}
		svc := NewPinService(repo, countsOn(), config.DeletePolicyTeam, nil)

		err := svc.DeletePin(context.Background(), DeletePinInput{ID: "p1"})
		assertAppErrorCode(t, err, models.CodeDeleteDenied)
	})

	t.Run("team policy with token deletes", func(t *testing.T) {
		t.Parallel()
		svc := NewPinService(noopPinRepo(), countsOn(), config.DeletePolicyTeam, nil)
		assert.NoError(t, svc.DeletePin(context.Background(), DeletePinInput{ID: "p1", Team: true}))
	})

	t.Run("repo error propagates", func(t *testing.T) {
		t.Parallel()
		repoErr := errors.New("db down")
		repo := noopPinRepo()
		repo.deleteFn = func(_ context.Context, _ string) (int64, error) { return 0, repoErr }
		svc := NewPinService(repo, countsOn(), config.DeletePolicyOpen, nil)

		assert.ErrorIs(t, svc.DeletePin(context.Background(), DeletePinInput{ID: "p1"}), repoErr)
	})
}

func TestPinService_GetPin_NotFound(t *testing.T) {
	t.Parallel()

	repo := noopPinRepo()
	repo.getByIDFn = func(_ context.Context, _ string) (*models.Pin, error) { return nil, errNotFound }
	svc := NewPinService(repo, countsOn(), "", nil)

	_, err := svc.GetPin(context.Background(), "missing")
	assertAppErrorCode(t, err, models.CodeNotFound)
}
