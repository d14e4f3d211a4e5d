package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/outbox"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
	"github.com/sellgrid/marketplace-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrdersRepo(seed ...*models.Order) *stubOrdersRepo {
	repo := &stubOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range seed {
		repo.orders[order.ID] = order
	}
	return repo
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(_ context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *stubOrdersRepo) FindByPaymentSessionID(_ context.Context, sessionID string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.PaymentSessionID != nil && *order.PaymentSessionID == sessionID {
			clone := *order
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) ListByProfile(_ context.Context, profileID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if order.ProfileID == profileID {
			rows = append(rows, *order)
		}
	}
	return rows, nil, nil
}

func (s *stubOrdersRepo) UpdateStatusGuarded(_ context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	order, ok := s.orders[orderID]
	if !ok || order.Status != from {
		return 0, nil
	}
	order.Status = to
	return 1, nil
}

func (s *stubOrdersRepo) AssignDriver(_ context.Context, orderID uuid.UUID, driverName string, eta *time.Time) (int64, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return 0, nil
	}
	order.DriverAssigned = &driverName
	order.EstimatedDelivery = eta
	return 1, nil
}

func (s *stubOrdersRepo) SetPaymentSessionID(_ context.Context, orderID uuid.UUID, sessionID string) error {
	if order, ok := s.orders[orderID]; ok {
		order.PaymentSessionID = &sessionID
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type capturingOutbox struct {
	events []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func seedOrder(buyerID, sellerID uuid.UUID, status enums.OrderStatus) *models.Order {
	orderID := uuid.New()
	return &models.Order{
		ID:              orderID,
		ProfileID:       buyerID,
		TotalCents:      3000,
		Status:          status,
		ShippingAddress: "1 Harbor Way",
		PaymentMethod:   enums.PaymentMethodCash,
		Items: []models.OrderItem{
			{
				ID:             uuid.New(),
				OrderID:        orderID,
				ProductID:      uuid.New(),
				SellerID:       sellerID,
				ProductName:    "Widget",
				Quantity:       3,
				UnitPriceCents: 1000,
				LineTotalCents: 3000,
			},
		},
	}
}

func newOrdersService(t *testing.T, repo Repository, sink *capturingOutbox) Service {
	t.Helper()

	svc, err := NewService(stubTxRunner{}, repo, sink)
	if err != nil {
		t.Fatalf("build orders service: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	order := seedOrder(buyer, seller, enums.OrderStatusPending)
	svc := newOrdersService(t, newStubOrdersRepo(order), &capturingOutbox{})
	ctx := context.Background()

	dto, err := svc.Get(ctx, Actor{ProfileID: buyer, Role: enums.ProfileRoleBuyer}, order.ID)
	if err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if len(dto.Items) != 1 || dto.Total != "30.00" {
		t.Fatalf("unexpected order detail: %+v", dto)
	}

	if _, err := svc.Get(ctx, Actor{ProfileID: seller, Role: enums.ProfileRoleSeller}, order.ID); err != nil {
		t.Fatalf("seller on the order should read it: %v", err)
	}

	_, err = svc.Get(ctx, Actor{ProfileID: uuid.New(), Role: enums.ProfileRoleBuyer}, order.ID)
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestUpdateStatusForwardOnly(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	order := seedOrder(buyer, seller, enums.OrderStatusPaid)
	repo := newStubOrdersRepo(order)
	sink := &capturingOutbox{}
	svc := newOrdersService(t, repo, sink)
	ctx := context.Background()
	sellerActor := Actor{ProfileID: seller, Role: enums.ProfileRoleSeller}

	dto, err := svc.UpdateStatus(ctx, sellerActor, order.ID, UpdateStatusInput{Status: enums.OrderStatusProcessing})
	if err != nil {
		t.Fatalf("paid -> processing: %v", err)
	}
	if dto.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", dto.Status)
	}

	_, err = svc.UpdateStatus(ctx, sellerActor, order.ID, UpdateStatusInput{Status: enums.OrderStatusPaid})
	expectCode(t, err, pkgerrors.CodeStateConflict)

	if len(sink.events) != 1 {
		t.Fatalf("expected one emitted event, got %d", len(sink.events))
	}
	event := sink.events[0]
	if event.EventType != enums.EventOrderStatusChanged {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.Actor == nil || event.Actor.ProfileID != seller || event.Actor.Role != enums.ProfileRoleSeller.String() {
		t.Fatalf("unexpected event actor %+v", event.Actor)
	}
	payload, ok := event.Data.(payloads.OrderStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.From != enums.OrderStatusPaid || payload.To != enums.OrderStatusProcessing {
		t.Fatalf("unexpected transition payload %+v", payload)
	}
}

func TestUpdateStatusAuthorization(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	order := seedOrder(buyer, seller, enums.OrderStatusPending)
	svc := newOrdersService(t, newStubOrdersRepo(order), &capturingOutbox{})
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, Actor{ProfileID: uuid.New(), Role: enums.ProfileRoleSeller}, order.ID,
		UpdateStatusInput{Status: enums.OrderStatusPaid})
	expectCode(t, err, pkgerrors.CodeForbidden)

	// The buyer may cancel their own order while it is still pending.
	dto, err := svc.UpdateStatus(ctx, Actor{ProfileID: buyer, Role: enums.ProfileRoleBuyer}, order.ID,
		UpdateStatusInput{Status: enums.OrderStatusCancelled})
	if err != nil {
		t.Fatalf("buyer cancel: %v", err)
	}
	if dto.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", dto.Status)
	}
}

func TestUpdateStatusCancelAfterShipmentRejected(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	order := seedOrder(buyer, seller, enums.OrderStatusShipped)
	svc := newOrdersService(t, newStubOrdersRepo(order), &capturingOutbox{})

	_, err := svc.UpdateStatus(context.Background(), Actor{ProfileID: buyer, Role: enums.ProfileRoleBuyer},
		order.ID, UpdateStatusInput{Status: enums.OrderStatusCancelled})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAssignDriver(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	order := seedOrder(buyer, seller, enums.OrderStatusPaid)
	svc := newOrdersService(t, newStubOrdersRepo(order), &capturingOutbox{})
	ctx := context.Background()
	eta := time.Now().Add(48 * time.Hour).UTC()

	_, err := svc.AssignDriver(ctx, Actor{ProfileID: buyer, Role: enums.ProfileRoleBuyer}, order.ID,
		AssignDriverInput{DriverName: "Casey"})
	expectCode(t, err, pkgerrors.CodeForbidden)

	dto, err := svc.AssignDriver(ctx, Actor{ProfileID: seller, Role: enums.ProfileRoleSeller}, order.ID,
		AssignDriverInput{DriverName: "Casey", EstimatedDelivery: &eta})
	if err != nil {
		t.Fatalf("assign driver: %v", err)
	}
	if dto.DriverAssigned == nil || *dto.DriverAssigned != "Casey" {
		t.Fatalf("driver not recorded: %+v", dto)
	}
	if dto.EstimatedDelivery == nil || !dto.EstimatedDelivery.Equal(eta) {
		t.Fatalf("eta not recorded: %+v", dto)
	}
}

func TestSellerLinesFromItems(t *testing.T) {
	sellerA := uuid.New()
	sellerB := uuid.New()
	items := []models.OrderItem{
		{SellerID: sellerA, Quantity: 2, LineTotalCents: 2000},
		{SellerID: sellerB, Quantity: 1, LineTotalCents: 500},
		{SellerID: sellerA, Quantity: 3, LineTotalCents: 1500},
	}

	lines := SellerLinesFromItems(items)
	if len(lines) != 2 {
		t.Fatalf("expected 2 seller lines, got %d", len(lines))
	}
	byID := map[uuid.UUID]payloads.SellerLine{}
	for _, line := range lines {
		byID[line.SellerID] = line
	}
	if got := byID[sellerA]; got.ItemCount != 2 || got.QuantitySold != 5 || got.AmountCents != 3500 {
		t.Fatalf("seller A aggregate wrong: %+v", got)
	}
	if got := byID[sellerB]; got.ItemCount != 1 || got.QuantitySold != 1 || got.AmountCents != 500 {
		t.Fatalf("seller B aggregate wrong: %+v", got)
	}
}
