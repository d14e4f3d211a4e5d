package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
)

// OrderItemDTO is one immutable order line.
type OrderItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	ProductName    string    `json:"product_name"`
	Category       string    `json:"category"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
}

// OrderDTO is the buyer-facing order view.
type OrderDTO struct {
	ID                uuid.UUID           `json:"id"`
	ProfileID         uuid.UUID           `json:"profile_id"`
	TotalCents        int                 `json:"total_cents"`
	Total             string              `json:"total"`
	Status            enums.OrderStatus   `json:"status"`
	ShippingAddress   string              `json:"shipping_address"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	PaymentSessionID  *string             `json:"payment_session_id,omitempty"`
	DriverAssigned    *string             `json:"driver_assigned,omitempty"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery,omitempty"`
	Items             []OrderItemDTO      `json:"items,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// ListOrdersInput drives buyer order pagination.
type ListOrdersInput struct {
	Limit  int
	Cursor string
}

// OrderListResult is one page of orders plus the follow-up cursor.
type OrderListResult struct {
	Items  []OrderDTO `json:"items"`
	Cursor string     `json:"cursor,omitempty"`
}

// UpdateStatusInput names the requested transition.
type UpdateStatusInput struct {
	Status enums.OrderStatus
}

// AssignDriverInput carries fulfillment assignment fields.
type AssignDriverInput struct {
	DriverName        string
	EstimatedDelivery *time.Time
}

// NewOrderDTO maps the model into the API shape, optionally with items.
func NewOrderDTO(order *models.Order, includeItems bool) OrderDTO {
	return fromModel(order, includeItems)
}

func fromModel(order *models.Order, includeItems bool) OrderDTO {
	dto := OrderDTO{
		ID:                order.ID,
		ProfileID:         order.ProfileID,
		TotalCents:        order.TotalCents,
		Total:             decimal.NewFromInt(int64(order.TotalCents)).Div(decimal.NewFromInt(100)).StringFixed(2),
		Status:            order.Status,
		ShippingAddress:   order.ShippingAddress,
		PaymentMethod:     order.PaymentMethod,
		PaymentSessionID:  order.PaymentSessionID,
		DriverAssigned:    order.DriverAssigned,
		EstimatedDelivery: order.EstimatedDelivery,
		CreatedAt:         order.CreatedAt,
	}
	if includeItems {
		dto.Items = make([]OrderItemDTO, 0, len(order.Items))
		for _, item := range order.Items {
			dto.Items = append(dto.Items, OrderItemDTO{
				ID:             item.ID,
				ProductID:      item.ProductID,
				SellerID:       item.SellerID,
				ProductName:    item.ProductName,
				Category:       item.Category,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
				LineTotalCents: item.LineTotalCents,
			})
		}
	}
	return dto
}
