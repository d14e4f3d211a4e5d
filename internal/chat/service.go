package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/pagination"
)

const maxMessageLength = 4000

type feedPublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	ChatChannelKey(participantA, participantB string) string
}

type profileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Service exposes direct messaging between two profiles.
type Service interface {
	Send(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*MessageDTO, error)
	History(ctx context.Context, userID uuid.UUID, input HistoryInput) (*HistoryResult, error)
	MarkRead(ctx context.Context, userID, messageID uuid.UUID) error
}

type service struct {
	repo     Repository
	profiles profileReader
	feed     feedPublisher
	logg     *logger.Logger
}

// NewService builds the chat service.
func NewService(repo Repository, profiles profileReader, feed feedPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chat repository required")
	}
	if profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "profile reader required")
	}
	if feed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "feed publisher required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, profiles: profiles, feed: feed, logg: logg}, nil
}

func (s *service) Send(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*MessageDTO, error) {
	if senderID == uuid.Nil || input.ReceiverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender and receiver ids required")
	}
	if senderID == input.ReceiverID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot message yourself")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content required")
	}
	if len(content) > maxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content too long")
	}

	receiver, err := s.profiles.FindByID(ctx, input.ReceiverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receiver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load receiver")
	}
	if !receiver.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver account is inactive")
	}

	message := &models.Message{
		SenderID:   senderID,
		ReceiverID: input.ReceiverID,
		Content:    content,
		ProductID:  input.ProductID,
		OrderID:    input.OrderID,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store message")
	}

	dto := messageFromModel(message)
	s.publish(ctx, &dto)
	return &dto, nil
}

// publish pushes the message onto the conversation's realtime channel. Feed
// delivery is best effort; the message is already durable.
func (s *service) publish(ctx context.Context, dto *MessageDTO) {
	channel := s.feed.ChatChannelKey(dto.SenderID.String(), dto.ReceiverID.String())
	payload, err := json.Marshal(dto)
	if err != nil {
		s.logg.Error(ctx, "failed to encode chat message for feed", err)
		return
	}
	if err := s.feed.Publish(ctx, channel, payload); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "message_id", dto.ID.String()),
			"failed to publish chat message", err)
	}
}

func (s *service) History(ctx context.Context, userID uuid.UUID, input HistoryInput) (*HistoryResult, error) {
	if userID == uuid.Nil || input.OtherID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both participant ids required")
	}
	if userID == input.OtherID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation requires two participants")
	}

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		parsed, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.HistoryBetween(ctx, userID, input.OtherID, input.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load history")
	}

	// Reading the conversation marks everything the other party sent as read.
	if _, err := s.repo.MarkConversationRead(ctx, userID, input.OtherID, time.Now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark conversation read")
	}

	result := &HistoryResult{Items: make([]MessageDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, messageFromModel(&rows[i]))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	if userID == uuid.Nil || messageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and message id required")
	}

	affected, err := s.repo.MarkRead(ctx, userID, messageID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark message read")
	}
	if affected > 0 {
		return nil
	}

	message, err := s.repo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load message")
	}
	if message.ReceiverID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the receiver may mark a message read")
	}
	// Receiver but zero rows: the message was already read.
	return nil
}
