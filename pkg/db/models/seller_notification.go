package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerNotification is written only by the dispatch flow, once per
// (order, seller) pair.
type SellerNotification struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID  uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:ux_seller_notifications_order_seller"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_seller_notifications_order_seller"`
	Message   string     `gorm:"column:message;type:text;not null"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
