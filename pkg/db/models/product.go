package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a seller-owned listing visible to every reader.
type Product struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Name          string    `gorm:"column:name;not null"`
	Description   string    `gorm:"column:description;type:text;not null;default:''"`
	PriceCents    int       `gorm:"column:price_cents;not null"`
	StockQuantity int       `gorm:"column:stock_quantity;not null;default:0"`
	Category      string    `gorm:"column:category;not null;index"`
	ImageURL      *string   `gorm:"column:image_url"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	Seller        *Profile  `gorm:"foreignKey:SellerID"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
