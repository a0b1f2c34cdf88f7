package service

import (
	"context"
	"log/slog"

	"posterboard/internal/config"
	"posterboard/internal/featureflags"
	"posterboard/internal/models"
	"posterboard/internal/notifications"
	"posterboard/internal/observability"
	"posterboard/internal/repository"
	"posterboard/internal/validation"
)

type PinService struct {
	pinRepo      repository.PinRepository
	flags        *featureflags.Manager
	deletePolicy string
	publisher    Publisher
}

type CreatePinInput struct {
	X          float64
	Y          float64
	AuthorName string
	Body       string
}

type DeletePinInput struct {
	ID string
	// Team is true when the caller presented a valid team token.
	Team bool
}

// PinDeletedPayload is the body of a pin_deleted event.
type PinDeletedPayload struct {
	ID string `json:"id"`
}

func NewPinService(
	pinRepo repository.PinRepository,
	flags *featureflags.Manager,
	deletePolicy string,
	publisher Publisher,
) *PinService {
	if deletePolicy == "" {
		deletePolicy = config.DeletePolicyOpen
	}
	return &PinService{
		pinRepo:      pinRepo,
		flags:        flags,
		deletePolicy: deletePolicy,
		publisher:    publisher,
	}
}

func (s *PinService) CreatePin(ctx context.Context, in CreatePinInput) (_ *models.Pin, err error) {
	ctx, span := observability.StartSpan(ctx, "pins", "create")
	defer func() { observability.EndSpan(span, err) }()

	body, author, err := validateComment(in.Body, in.AuthorName)
	if err != nil {
		return nil, err
	}
	if err := validation.Position(in.X, in.Y); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	pin := &models.Pin{
		X:          in.X,
		Y:          in.Y,
		AuthorName: author,
		Body:       body,
	}
	if err := s.pinRepo.Create(ctx, pin); err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttrPinID.String(pin.ID))

	observability.PinsCreated.Inc()
	publish(ctx, s.publisher, notifications.EventPinCreated, notifications.TopicPins, pin)
	return pin, nil
}

func (s *PinService) GetPin(ctx context.Context, id string) (*models.Pin, error) {
	pin, err := s.pinRepo.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, models.NewNotFoundError("Pin", id)
	}
	return pin, err
}

// ListPins returns every pin, unordered.
func (s *PinService) ListPins(ctx context.Context) ([]models.Pin, error) {
	return s.pinRepo.List(ctx)
}

// ListPinsWithReplyCounts returns pins newest first. Reply counts are best
// effort: if the aggregate query fails the plain list is returned without
// them.
func (s *PinService) ListPinsWithReplyCounts(ctx context.Context) ([]models.Pin, error) {
	if !s.flags.On(featureflags.ReplyCounts) {
		return s.pinRepo.ListNewest(ctx)
	}

	pins, err := s.pinRepo.ListNewestWithReplyCounts(ctx)
	if err == nil {
		return pins, nil
	}

	reason := "error"
	if repository.IsMissingSchema(err) {
		reason = "missing_schema"
	}
	observability.ReplyCountFallbacks.WithLabelValues(reason).Inc()
	slog.WarnContext(ctx, "reply count aggregate failed, listing without counts",
		"reason", reason,
		"error", err,
	)
	return s.pinRepo.ListNewest(ctx)
}

// DeletePin removes a pin. A delete that removes nothing is reported as
// DELETE_DENIED, the same outcome a caller without team rights gets under the
// team policy.
func (s *PinService) DeletePin(ctx context.Context, in DeletePinInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "pins", "delete",
		observability.AttrPinID.String(in.ID),
		observability.AttrTeam.Bool(in.Team),
	)
	defer func() { observability.EndSpan(span, err) }()

	if s.deletePolicy == config.DeletePolicyTeam && !in.Team {
		observability.PinDeleteDenied.Inc()
		return models.NewDeleteDeniedError("pin", in.ID)
	}

	affected, err := s.pinRepo.Delete(ctx, in.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		observability.PinDeleteDenied.Inc()
		return models.NewDeleteDeniedError("pin", in.ID)
	}

	publish(ctx, s.publisher, notifications.EventPinDeleted, notifications.TopicPins, PinDeletedPayload{ID: in.ID})
	return nil
}

// validateComment checks the body and author shared by pins and replies.
func validateComment(rawBody, rawAuthor string) (string, string, error) {
	body, err := validation.CommentBody(rawBody)
	if err != nil {
		return "", "", models.NewValidationError(err.Error())
	}
	author, err := validation.AuthorName(rawAuthor)
	if err != nil {
		return "", "", models.NewValidationError(err.Error())
	}
	return body, author, nil
}
