package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
)

// CartLineDTO is one cart line joined with its product snapshot.
type CartLineDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Category       string    `json:"category"`
	ImageURL       *string   `json:"image_url,omitempty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
}

// CartTotals aggregates the derived cart figures.
type CartTotals struct {
	SubtotalCents int    `json:"subtotal_cents"`
	ItemCount     int    `json:"item_count"`
	Subtotal      string `json:"subtotal"`
}

// CartDTO is the full cart view returned to buyers.
type CartDTO struct {
	Items  []CartLineDTO `json:"items"`
	Totals CartTotals    `json:"totals"`
}

func formatCents(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func buildCartDTO(lines []models.CartItem) *CartDTO {
	dto := &CartDTO{Items: make([]CartLineDTO, 0, len(lines))}
	for _, line := range lines {
		item := CartLineDTO{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
		if line.Product != nil {
			item.ProductName = line.Product.Name
			item.Category = line.Product.Category
			item.ImageURL = line.Product.ImageURL
			item.UnitPriceCents = line.Product.PriceCents
			item.LineTotalCents = line.Product.PriceCents * line.Quantity
		}
		dto.Items = append(dto.Items, item)
		dto.Totals.SubtotalCents += item.LineTotalCents
		dto.Totals.ItemCount += line.Quantity
	}
	dto.Totals.Subtotal = formatCents(dto.Totals.SubtotalCents)
	return dto
}
