package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellgrid/marketplace-backend/pkg/enums"
)

// Order is the immutable record produced at checkout. Only status and the
// driver/delivery fields change after creation.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID         uuid.UUID           `gorm:"column:profile_id;type:uuid;not null;index"`
	TotalCents        int                 `gorm:"column:total_cents;not null"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	ShippingAddress   string              `gorm:"column:shipping_address;type:text;not null"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	PaymentSessionID  *string             `gorm:"column:payment_session_id;index"`
	DriverAssigned    *string             `gorm:"column:driver_assigned"`
	EstimatedDelivery *time.Time          `gorm:"column:estimated_delivery"`
	Items             []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots a product at order time; price is never re-derived.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductName    string    `gorm:"column:product_name;not null"`
	Category       string    `gorm:"column:category;not null;default:''"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int       `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
