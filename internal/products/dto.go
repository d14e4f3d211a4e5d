package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
)

// ProductDTO is the transport shape for catalog reads.
type ProductDTO struct {
	ID            uuid.UUID `json:"id"`
	SellerID      uuid.UUID `json:"seller_id"`
	SellerName    string    `json:"seller_name,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	PriceCents    int       `json:"price_cents"`
	StockQuantity int       `json:"stock_quantity"`
	Category      string    `json:"category"`
	ImageURL      *string   `json:"image_url,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name          string  `json:"name" validate:"required"`
	Description   *string `json:"description,omitempty"`
	PriceCents    int     `json:"price_cents" validate:"required,gt=0"`
	StockQuantity int     `json:"stock_quantity" validate:"gte=0"`
	Category      string  `json:"category" validate:"required"`
	ImageURL      *string `json:"image_url,omitempty"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	PriceCents    *int    `json:"price_cents,omitempty"`
	StockQuantity *int    `json:"stock_quantity,omitempty"`
	Category      *string `json:"category,omitempty"`
	ImageURL      *string `json:"image_url,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// ListProductsInput configures catalog listing filters.
type ListProductsInput struct {
	Category   string
	Search     string
	SellerID   *uuid.UUID
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// ProductListResult wraps one catalog page and the next-page cursor.
type ProductListResult struct {
	Items  []ProductDTO `json:"items"`
	Cursor string       `json:"cursor"`
}

func fromModel(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:            p.ID,
		SellerID:      p.SellerID,
		Name:          p.Name,
		Description:   p.Description,
		PriceCents:    p.PriceCents,
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
		ImageURL:      p.ImageURL,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Seller != nil {
		dto.SellerName = p.Seller.DisplayName
	}
	return dto
}

func fromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out
}
