package analytics

import (
	"github.com/google/uuid"
)

// Window sizes supported by the summary endpoint, in days.
var supportedWindows = map[int]bool{7: true, 30: true, 90: true}

// DailyPoint is one day of the zero-filled revenue series.
type DailyPoint struct {
	Date         string `json:"date"`
	RevenueCents int64  `json:"revenue_cents"`
	Orders       int    `json:"orders"`
}

// TopProduct ranks one product by revenue inside the window.
type TopProduct struct {
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	RevenueCents int64     `json:"revenue_cents"`
	QuantitySold int       `json:"quantity_sold"`
}

// CategoryStat aggregates window revenue per product category.
type CategoryStat struct {
	Category     string `json:"category"`
	RevenueCents int64  `json:"revenue_cents"`
	ItemsSold    int    `json:"items_sold"`
}

// LifetimeTotals mirrors the rollup row maintained by the worker.
type LifetimeTotals struct {
	TotalOrders       int64 `json:"total_orders"`
	TotalItemsSold    int64 `json:"total_items_sold"`
	TotalRevenueCents int64 `json:"total_revenue_cents"`
}

// Summary is the seller dashboard payload for one window.
type Summary struct {
	WindowDays             int            `json:"window_days"`
	TotalRevenueCents      int64          `json:"total_revenue_cents"`
	OrderCount             int            `json:"order_count"`
	AverageOrderValueCents int64          `json:"average_order_value_cents"`
	GrowthPercent          float64        `json:"growth_percent"`
	Daily                  []DailyPoint   `json:"daily"`
	TopProducts            []TopProduct   `json:"top_products"`
	Categories             []CategoryStat `json:"categories"`
	Lifetime               LifetimeTotals `json:"lifetime"`
}
