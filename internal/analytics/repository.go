package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
)

// SalesRow is one order line attributed to a seller, joined with the parent
// order's timestamp. The summary math runs over these rows in application
// code.
type SalesRow struct {
	OrderID        uuid.UUID `gorm:"column:order_id"`
	ProductID      uuid.UUID `gorm:"column:product_id"`
	ProductName    string    `gorm:"column:product_name"`
	Category       string    `gorm:"column:category"`
	Quantity       int       `gorm:"column:quantity"`
	LineTotalCents int64     `gorm:"column:line_total_cents"`
	OrderedAt      time.Time `gorm:"column:ordered_at"`
}

// Repository defines persistence operations for seller analytics.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ApplyOrder(ctx context.Context, line payloads.SellerLine) error
	SalesBetween(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]SalesRow, error)
	LifetimeTotals(ctx context.Context, sellerID uuid.UUID) (*models.SellerAnalytics, error)
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

// ApplyOrder folds one seller's share of an order into the lifetime rollup
// row. The upsert keeps the increment atomic under concurrent consumers.
func (r *repository) ApplyOrder(ctx context.Context, line payloads.SellerLine) error {
	row := models.SellerAnalytics{
		SellerID:          line.SellerID,
		TotalOrders:       1,
		TotalItemsSold:    int64(line.QuantitySold),
		TotalRevenueCents: int64(line.AmountCents),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seller_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_orders":        gorm.Expr("seller_analytics.total_orders + 1"),
				"total_items_sold":    gorm.Expr("seller_analytics.total_items_sold + ?", line.QuantitySold),
				"total_revenue_cents": gorm.Expr("seller_analytics.total_revenue_cents + ?", line.AmountCents),
				"updated_at":          gorm.Expr("NOW()"),
			}),
		}).
		Create(&row).Error
}

// SalesBetween loads the seller's order lines in [from, to), excluding
// cancelled orders.
func (r *repository) SalesBetween(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]SalesRow, error) {
	var rows []SalesRow
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.order_id, order_items.product_id, order_items.product_name, order_items.category, order_items.quantity, order_items.line_total_cents, orders.created_at AS ordered_at").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.seller_id = ?", sellerID).
		Where("orders.created_at >= ? AND orders.created_at < ?", from, to).
		Where("orders.status <> ?", enums.OrderStatusCancelled).
		Order("orders.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) LifetimeTotals(ctx context.Context, sellerID uuid.UUID) (*models.SellerAnalytics, error) {
	var row models.SellerAnalytics
	if err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
