package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for product rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	UpdateFields(ctx context.Context, productID, sellerID uuid.UUID, updates map[string]any) (int64, error)
	List(ctx context.Context, params ListParams) ([]models.Product, *pagination.Cursor, error)
}
