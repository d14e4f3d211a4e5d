package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/internal/cart"
	"github.com/sellgrid/marketplace-backend/internal/orders"
	"github.com/sellgrid/marketplace-backend/internal/products"
	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/outbox"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, profileID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
}

type service struct {
	tx          txRunner
	cartRepo    cart.Repository
	ordersRepo  orders.Repository
	productRepo products.Repository
	outbox      outboxPublisher
	payments    paymentSessionCreator
}

// NewService builds the checkout service. The payment session creator is
// required only when card checkout is enabled.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	productRepo products.Repository,
	publisher outboxPublisher,
	payments paymentSessionCreator,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if cartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if productRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product repository required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		ordersRepo:  ordersRepo,
		productRepo: productRepo,
		outbox:      publisher,
		payments:    payments,
	}, nil
}

func (s *service) Execute(ctx context.Context, profileID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}
	address := strings.TrimSpace(input.ShippingAddress)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.PaymentMethod == enums.PaymentMethodCard && s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card checkout is not configured")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		lines, err := cartRepo.ListByProfile(ctx, profileID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		productIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			productIDs = append(productIDs, line.ProductID)
		}
		locked, err := productRepo.LockByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock products")
		}
		productByID := make(map[uuid.UUID]*models.Product, len(locked))
		for i := range locked {
			productByID[locked[i].ID] = &locked[i]
		}

		order := &models.Order{
			ProfileID:       profileID,
			Status:          enums.OrderStatusPending,
			ShippingAddress: address,
			PaymentMethod:   input.PaymentMethod,
		}
		for _, line := range lines {
			product, ok := productByID[line.ProductID]
			if !ok || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeConflict, "product is no longer available").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
			if err := productRepo.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
				if errors.Is(err, products.ErrInsufficientStock) {
					return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
						WithDetails(map[string]any{
							"product_id": product.ID,
							"available":  product.StockQuantity,
							"requested":  line.Quantity,
						})
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}

			lineTotal := product.PriceCents * line.Quantity
			order.Items = append(order.Items, models.OrderItem{
				ProductID:      product.ID,
				SellerID:       product.SellerID,
				ProductName:    product.Name,
				Category:       product.Category,
				Quantity:       line.Quantity,
				UnitPriceCents: product.PriceCents,
				LineTotalCents: lineTotal,
			})
			order.TotalCents += lineTotal
		}

		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := cartRepo.Clear(ctx, profileID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		// Cash orders complete here, so the fan-out fires now. Card orders
		// stay silent until the payment webhook settles them; an abandoned
		// session never notifies anyone.
		if input.PaymentMethod != enums.PaymentMethodCard {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{ProfileID: profileID, Role: enums.ProfileRoleBuyer.String()},
				Data: payloads.OrderCreatedEvent{
					OrderID:     order.ID,
					BuyerID:     profileID,
					TotalCents:  order.TotalCents,
					SellerLines: orders.SellerLinesFromItems(order.Items),
				},
				Version: 1,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created event")
			}
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{Order: orders.NewOrderDTO(created, true)}
	if input.PaymentMethod == enums.PaymentMethodCard {
		session, err := s.payments.CreateSession(ctx, created)
		if err != nil {
			return nil, err
		}
		if err := s.ordersRepo.SetPaymentSessionID(ctx, created.ID, session.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist payment session")
		}
		created.PaymentSessionID = &session.ID
		result.Order.PaymentSessionID = &session.ID
		result.PaymentURL = session.URL
	}
	return result, nil
}
