package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
)

// Repository defines persistence operations for cart lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLine(ctx context.Context, profileID, productID uuid.UUID) (*models.CartItem, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.CartItem, error)
	SetQuantity(ctx context.Context, profileID, productID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, profileID, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, profileID uuid.UUID) error
}
