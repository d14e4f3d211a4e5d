package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
)

// MessageDTO is the wire shape for one chat message. The id lets stream
// clients dedupe against a history load.
type MessageDTO struct {
	ID         uuid.UUID  `json:"id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Content    string     `json:"content"`
	ProductID  *uuid.UUID `json:"product_id,omitempty"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SendMessageInput carries a new message addressed to one receiver.
type SendMessageInput struct {
	ReceiverID uuid.UUID
	Content    string
	ProductID  *uuid.UUID
	OrderID    *uuid.UUID
}

// HistoryInput pages a conversation oldest-first.
type HistoryInput struct {
	OtherID uuid.UUID
	Limit   int
	Cursor  string
}

// HistoryResult is one ascending page plus the cursor for the next one.
type HistoryResult struct {
	Items  []MessageDTO `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}

func messageFromModel(message *models.Message) MessageDTO {
	return MessageDTO{
		ID:         message.ID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		ProductID:  message.ProductID,
		OrderID:    message.OrderID,
		ReadAt:     message.ReadAt,
		CreatedAt:  message.CreatedAt,
	}
}
