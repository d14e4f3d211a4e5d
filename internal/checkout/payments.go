package checkout

import (
	"context"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"

	"github.com/sellgrid/marketplace-backend/pkg/config"
	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
)

// PaymentSession is the processor-side checkout handle returned for card orders.
type PaymentSession struct {
	ID  string
	URL string
}

type paymentSessionCreator interface {
	CreateSession(ctx context.Context, order *models.Order) (*PaymentSession, error)
}

// StripeSessionCreator builds hosted Stripe Checkout sessions for card orders.
type StripeSessionCreator struct {
	cfg config.StripeConfig
}

// NewStripeSessionCreator configures the Stripe client and returns the creator.
func NewStripeSessionCreator(cfg config.StripeConfig) (*StripeSessionCreator, error) {
	if cfg.APIKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe api key required")
	}
	stripe.Key = cfg.APIKey
	return &StripeSessionCreator{cfg: cfg}, nil
}

// CreateSession opens a Stripe Checkout session mirroring the order lines.
// The order id travels in the session metadata so the webhook can resolve it.
func (c *StripeSessionCreator) CreateSession(ctx context.Context, order *models.Order) (*PaymentSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(item.UnitPriceCents)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.ProductName),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		SubmitType: stripe.String("pay"),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID.String())

	created, err := session.New(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe checkout session")
	}
	return &PaymentSession{ID: created.ID, URL: created.URL}, nil
}
