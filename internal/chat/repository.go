package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for chat messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	HistoryBetween(ctx context.Context, userID, otherID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Message, *pagination.Cursor, error)
	MarkConversationRead(ctx context.Context, receiverID, senderID uuid.UUID, now time.Time) (int64, error)
	MarkRead(ctx context.Context, receiverID, messageID uuid.UUID, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// HistoryBetween returns one ascending page of the conversation between the
// two participants, regardless of direction.
func (r *repository) HistoryBetween(ctx context.Context, userID, otherID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Message, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at ASC, id ASC").
		Limit(pagination.LimitWithBuffer(limit))
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	trimmed, hasMore := pagination.TrimPage(rows, limit)
	if !hasMore {
		return trimmed, nil, nil
	}
	last := trimmed[len(trimmed)-1]
	return trimmed, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

// MarkConversationRead flips every unread message the sender addressed to the
// receiver.
func (r *repository) MarkConversationRead(ctx context.Context, receiverID, senderID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND read_at IS NULL", receiverID, senderID).
		UpdateColumn("read_at", now)
	return result.RowsAffected, result.Error
}

func (r *repository) MarkRead(ctx context.Context, receiverID, messageID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND receiver_id = ? AND read_at IS NULL", messageID, receiverID).
		UpdateColumn("read_at", now)
	return result.RowsAffected, result.Error
}
