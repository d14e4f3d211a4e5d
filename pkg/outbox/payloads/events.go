package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellgrid/marketplace-backend/pkg/enums"
)

// SellerLine aggregates one seller's share of an order so consumers never
// have to re-query order_items.
type SellerLine struct {
	SellerID     uuid.UUID `json:"seller_id"`
	ItemCount    int       `json:"item_count"`
	QuantitySold int       `json:"quantity_sold"`
	AmountCents  int       `json:"amount_cents"`
}

// OrderCreatedEvent signals a checkout converted the cart into an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID    `json:"order_id"`
	BuyerID     uuid.UUID    `json:"buyer_id"`
	TotalCents  int          `json:"total_cents"`
	SellerLines []SellerLine `json:"seller_lines"`
}

// OrderPaidEvent is emitted once payment is confirmed for an order.
type OrderPaidEvent struct {
	OrderID     uuid.UUID    `json:"order_id"`
	BuyerID     uuid.UUID    `json:"buyer_id"`
	AmountCents int          `json:"amount_cents"`
	PaidAt      time.Time    `json:"paid_at"`
	SellerLines []SellerLine `json:"seller_lines"`
}

// OrderStatusChangedEvent reports a fulfillment status transition.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	BuyerID   uuid.UUID         `json:"buyer_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedAt time.Time         `json:"changed_at"`
}
