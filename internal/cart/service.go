package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
)

type lineStore interface {
	FindLine(ctx context.Context, profileID, productID uuid.UUID) (*models.CartItem, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.CartItem, error)
	SetQuantity(ctx context.Context, profileID, productID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, profileID, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, profileID uuid.UUID) error
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes buyer cart operations.
type Service interface {
	AddItem(ctx context.Context, profileID, productID uuid.UUID) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, profileID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, profileID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, profileID uuid.UUID) error
	Get(ctx context.Context, profileID uuid.UUID) (*CartDTO, error)
}

type service struct {
	lines    lineStore
	products productReader
}

// NewService builds a cart service backed by the provided stores.
func NewService(lines lineStore, products productReader) (Service, error) {
	if lines == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart line store required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product reader required")
	}
	return &service{lines: lines, products: products}, nil
}

func (s *service) AddItem(ctx context.Context, profileID, productID uuid.UUID) (*CartDTO, error) {
	if profileID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id and product id required")
	}

	quantity := 1
	line, err := s.lines.FindLine(ctx, profileID, productID)
	switch {
	case err == nil:
		quantity = line.Quantity + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}

	if err := s.ensurePurchasable(ctx, productID, quantity); err != nil {
		return nil, err
	}
	if err := s.lines.SetQuantity(ctx, profileID, productID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store cart line")
	}
	return s.Get(ctx, profileID)
}

func (s *service) UpdateQuantity(ctx context.Context, profileID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if profileID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id and product id required")
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, profileID, productID)
	}

	if _, err := s.lines.FindLine(ctx, profileID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	if err := s.ensurePurchasable(ctx, productID, quantity); err != nil {
		return nil, err
	}
	if err := s.lines.SetQuantity(ctx, profileID, productID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store cart line")
	}
	return s.Get(ctx, profileID)
}

func (s *service) RemoveItem(ctx context.Context, profileID, productID uuid.UUID) (*CartDTO, error) {
	if profileID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id and product id required")
	}
	removed, err := s.lines.DeleteLine(ctx, profileID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return s.Get(ctx, profileID)
}

func (s *service) Clear(ctx context.Context, profileID uuid.UUID) error {
	if profileID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}
	if err := s.lines.Clear(ctx, profileID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) Get(ctx context.Context, profileID uuid.UUID) (*CartDTO, error) {
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}
	lines, err := s.lines.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return buildCartDTO(lines), nil
}

// ensurePurchasable verifies the product is live and can cover the requested quantity.
func (s *service) ensurePurchasable(ctx context.Context, productID uuid.UUID, quantity int) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available")
	}
	if product.StockQuantity < quantity {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{"available": product.StockQuantity, "requested": quantity})
	}
	return nil
}
