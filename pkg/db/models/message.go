package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one chat entry between exactly two profiles, optionally scoped to
// a product or order context. Only the receiver may flip ReadAt.
type Message struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SenderID   uuid.UUID  `gorm:"column:sender_id;type:uuid;not null;index"`
	ReceiverID uuid.UUID  `gorm:"column:receiver_id;type:uuid;not null;index"`
	Content    string     `gorm:"column:content;type:text;not null"`
	ProductID  *uuid.UUID `gorm:"column:product_id;type:uuid"`
	OrderID    *uuid.UUID `gorm:"column:order_id;type:uuid"`
	ReadAt     *time.Time `gorm:"column:read_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
