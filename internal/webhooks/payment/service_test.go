package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/internal/orders"
	"github.com/sellgrid/marketplace-backend/pkg/config"
	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/outbox"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
	"github.com/sellgrid/marketplace-backend/pkg/pagination"
)

const testWebhookSecret = "whsec_test_secret"

type webhookOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

func (r *webhookOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return r }

func (r *webhookOrdersRepo) Create(_ context.Context, order *models.Order) error {
	r.orders[order.ID] = order
	return nil
}

func (r *webhookOrdersRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *webhookOrdersRepo) FindByPaymentSessionID(_ context.Context, sessionID string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.PaymentSessionID != nil && *order.PaymentSessionID == sessionID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookOrdersRepo) ListByProfile(_ context.Context, profileID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (r *webhookOrdersRepo) UpdateStatusGuarded(_ context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	order, ok := r.orders[orderID]
	if !ok || order.Status != from {
		return 0, nil
	}
	order.Status = to
	return 1, nil
}

func (r *webhookOrdersRepo) AssignDriver(_ context.Context, orderID uuid.UUID, driverName string, eta *time.Time) (int64, error) {
	return 0, nil
}

func (r *webhookOrdersRepo) SetPaymentSessionID(_ context.Context, orderID uuid.UUID, sessionID string) error {
	if order, ok := r.orders[orderID]; ok {
		order.PaymentSessionID = &sessionID
	}
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type eventSink struct {
	events []outbox.DomainEvent
}

func (s *eventSink) EmitIfNotExists(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	s.events = append(s.events, event)
	return nil
}

func signPayload(t *testing.T, payload []byte) string {
	t.Helper()

	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func sessionCompletedPayload(t *testing.T, sessionID string) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":   "evt_" + uuid.NewString(),
		"type": "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{"id": sessionID},
		},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

type webhookFixture struct {
	svc  *Service
	repo *webhookOrdersRepo
	sink *eventSink
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	repo := &webhookOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
	sink := &eventSink{}
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(passthroughTx{}, repo, sink, logg, config.StripeConfig{WebhookSecret: testWebhookSecret})
	if err != nil {
		t.Fatalf("build webhook service: %v", err)
	}
	return &webhookFixture{svc: svc, repo: repo, sink: sink}
}

func (f *webhookFixture) seedCardOrder(sessionID string) *models.Order {
	orderID := uuid.New()
	sellerID := uuid.New()
	order := &models.Order{
		ID:               orderID,
		ProfileID:        uuid.New(),
		TotalCents:       2500,
		Status:           enums.OrderStatusPending,
		ShippingAddress:  "1 Harbor Way",
		PaymentMethod:    enums.PaymentMethodCard,
		PaymentSessionID: &sessionID,
		Items: []models.OrderItem{
			{OrderID: orderID, SellerID: sellerID, ProductName: "Widget", Quantity: 1, UnitPriceCents: 2500, LineTotalCents: 2500},
		},
	}
	f.repo.orders[orderID] = order
	return order
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	fx := newWebhookFixture(t)
	payload := sessionCompletedPayload(t, "cs_test_123")

	err := fx.svc.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleWebhookMarksOrderPaid(t *testing.T) {
	fx := newWebhookFixture(t)
	order := fx.seedCardOrder("cs_test_paidflow")
	payload := sessionCompletedPayload(t, "cs_test_paidflow")

	if err := fx.svc.HandleWebhook(context.Background(), payload, signPayload(t, payload)); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}

	if fx.repo.orders[order.ID].Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", fx.repo.orders[order.ID].Status)
	}
	if len(fx.sink.events) != 2 {
		t.Fatalf("expected paid and dispatch events, got %d", len(fx.sink.events))
	}
	if fx.sink.events[0].EventType != enums.EventOrderPaid {
		t.Fatalf("unexpected first event type %s", fx.sink.events[0].EventType)
	}
	paid, ok := fx.sink.events[0].Data.(payloads.OrderPaidEvent)
	if !ok {
		t.Fatalf("unexpected payload %T", fx.sink.events[0].Data)
	}
	if paid.AmountCents != 2500 || len(paid.SellerLines) != 1 {
		t.Fatalf("unexpected payload %+v", paid)
	}

	// The settle transaction carries the fan-out trigger for card orders.
	if fx.sink.events[1].EventType != enums.EventOrderCreated {
		t.Fatalf("unexpected second event type %s", fx.sink.events[1].EventType)
	}
	created, ok := fx.sink.events[1].Data.(payloads.OrderCreatedEvent)
	if !ok {
		t.Fatalf("unexpected payload %T", fx.sink.events[1].Data)
	}
	if created.OrderID != order.ID || created.TotalCents != 2500 || len(created.SellerLines) != 1 {
		t.Fatalf("unexpected dispatch payload %+v", created)
	}
}

func TestHandleWebhookReplayIsIdempotent(t *testing.T) {
	fx := newWebhookFixture(t)
	order := fx.seedCardOrder("cs_test_replay")
	payload := sessionCompletedPayload(t, "cs_test_replay")
	ctx := context.Background()

	if err := fx.svc.HandleWebhook(ctx, payload, signPayload(t, payload)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := fx.svc.HandleWebhook(ctx, payload, signPayload(t, payload)); err != nil {
		t.Fatalf("replay must succeed: %v", err)
	}

	if fx.repo.orders[order.ID].Status != enums.OrderStatusPaid {
		t.Fatalf("order should stay paid, got %s", fx.repo.orders[order.ID].Status)
	}
	if len(fx.sink.events) != 2 {
		t.Fatalf("replay must not emit again, got %d events", len(fx.sink.events))
	}
}

func TestHandleWebhookUnknownSession(t *testing.T) {
	fx := newWebhookFixture(t)
	payload := sessionCompletedPayload(t, "cs_test_missing")

	err := fx.svc.HandleWebhook(context.Background(), payload, signPayload(t, payload))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	fx := newWebhookFixture(t)
	payload, err := json.Marshal(map[string]any{
		"id":   "evt_" + uuid.NewString(),
		"type": "invoice.paid",
		"data": map[string]any{"object": map[string]any{"id": "in_123"}},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	if err := fx.svc.HandleWebhook(context.Background(), payload, signPayload(t, payload)); err != nil {
		t.Fatalf("unhandled events must ack cleanly: %v", err)
	}
	if len(fx.sink.events) != 0 {
		t.Fatal("no events expected")
	}
}
