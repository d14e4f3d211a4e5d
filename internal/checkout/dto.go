package checkout

import (
	"github.com/sellgrid/marketplace-backend/internal/orders"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
)

// CheckoutInput captures the buyer's checkout request.
type CheckoutInput struct {
	ShippingAddress string
	PaymentMethod   enums.PaymentMethod
}

// CheckoutResult is the created order plus the hosted payment URL for card
// orders. PaymentURL is empty for cash on delivery.
type CheckoutResult struct {
	Order      orders.OrderDTO `json:"order"`
	PaymentURL string          `json:"payment_url,omitempty"`
}
