package service

import (
	"context"

	"posterboard/internal/models"
	"posterboard/internal/notifications"
	"posterboard/internal/observability"
	"posterboard/internal/repository"
)

type ReplyService struct {
	replyRepo repository.ReplyRepository
	pinRepo   repository.PinRepository
	publisher Publisher
}

type CreateReplyInput struct {
	PinID      string
	AuthorName string
	Body       string
}

func NewReplyService(
	replyRepo repository.ReplyRepository,
	pinRepo repository.PinRepository,
	publisher Publisher,
) *ReplyService {
	return &ReplyService{
		replyRepo: replyRepo,
		pinRepo:   pinRepo,
		publisher: publisher,
	}
}

func (s *ReplyService) CreateReply(ctx context.Context, in CreateReplyInput) (_ *models.Reply, err error) {
	ctx, span := observability.StartSpan(ctx, "replies", "create", observability.AttrPinID.String(in.PinID))
	defer func() { observability.EndSpan(span, err) }()

	body, author, err := validateComment(in.Body, in.AuthorName)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePin(ctx, in.PinID); err != nil {
		return nil, err
	}

	reply := &models.Reply{
		PinID:      in.PinID,
		AuthorName: author,
		Body:       body,
	}
	if err := s.replyRepo.Create(ctx, reply); err != nil {
		return nil, err
	}

	observability.RepliesCreated.Inc()
	publish(ctx, s.publisher, notifications.EventReplyCreated, notifications.RepliesTopic(in.PinID), reply)
	return reply, nil
}

// ListReplies returns a pin's replies oldest first.
func (s *ReplyService) ListReplies(ctx context.Context, pinID string) ([]models.Reply, error) {
	if err := s.ensurePin(ctx, pinID); err != nil {
		return nil, err
	}
	return s.replyRepo.ListByPin(ctx, pinID)
}

func (s *ReplyService) ensurePin(ctx context.Context, pinID string) error {
	if _, err := s.pinRepo.GetByID(ctx, pinID); err != nil {
		if repository.IsNotFound(err) {
			return models.NewNotFoundError("Pin", pinID)
		}
		return err
	}
	return nil
}
