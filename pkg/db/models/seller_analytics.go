package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerAnalytics is a per-seller rollup maintained by the analytics
// worker as paid orders arrive. Reads never recompute it from order rows.
type SellerAnalytics struct {
	SellerID          uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
	TotalOrders       int64     `gorm:"column:total_orders;not null;default:0"`
	TotalItemsSold    int64     `gorm:"column:total_items_sold;not null;default:0"`
	TotalRevenueCents int64     `gorm:"column:total_revenue_cents;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellerAnalytics) TableName() string { return "seller_analytics" }
