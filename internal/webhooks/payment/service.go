package paymentwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/internal/orders"
	"github.com/sellgrid/marketplace-backend/pkg/config"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/outbox"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service verifies processor callbacks and settles card orders.
type Service struct {
	tx         txRunner
	ordersRepo orders.Repository
	outbox     outboxPublisher
	logg       *logger.Logger
	secret     string
}

// NewService builds the payment webhook service.
func NewService(tx txRunner, ordersRepo orders.Repository, publisher outboxPublisher, logg *logger.Logger, cfg config.StripeConfig) (*Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if cfg.WebhookSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe webhook secret required")
	}
	return &Service{
		tx:         tx,
		ordersRepo: ordersRepo,
		outbox:     publisher,
		logg:       logg,
		secret:     cfg.WebhookSecret,
	}, nil
}

// HandleWebhook verifies the signature and processes the event. Events the
// service does not care about are acknowledged without action; the processor
// retries on error per its own policy, so every path here is idempotent.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify webhook signature")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id": event.ID,
		"event_type":      string(event.Type),
	})

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		return s.settleOrder(logCtx, session.ID)
	default:
		s.logg.Info(logCtx, "ignoring unhandled webhook event")
		return nil
	}
}

// settleOrder moves the matching order from pending to paid exactly once.
// A replayed event finds the order already paid and succeeds without effect.
func (s *Service) settleOrder(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment session id missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		order, err := repo.FindByPaymentSessionID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}

		logCtx := s.logg.WithField(ctx, "order_id", order.ID.String())
		if order.Status != enums.OrderStatusPending {
			s.logg.Info(logCtx, "order already settled, acknowledging replay")
			return nil
		}

		affected, err := repo.UpdateStatusGuarded(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		if affected == 0 {
			s.logg.Info(logCtx, "order settled concurrently, acknowledging")
			return nil
		}

		sellerLines := orders.SellerLinesFromItems(order.Items)

		paid := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				BuyerID:     order.ProfileID,
				AmountCents: order.TotalCents,
				PaidAt:      time.Now().UTC(),
				SellerLines: sellerLines,
			},
			Version: 1,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, paid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order paid event")
		}

		// Card orders defer their fan-out to settle time, so the dispatch
		// trigger rides in the same transaction as the status flip.
		created := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				BuyerID:     order.ProfileID,
				TotalCents:  order.TotalCents,
				SellerLines: sellerLines,
			},
			Version: 1,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order dispatch event")
		}

		s.logg.Info(logCtx, "order marked paid")
		return nil
	})
}
