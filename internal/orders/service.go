package orders

import (
	"context"
	"errors"
	"strings"
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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies the authenticated caller for authorization checks.
type Actor struct {
	ProfileID uuid.UUID
	Role      enums.ProfileRole
}

// Service exposes order reads and lifecycle updates.
type Service interface {
	List(ctx context.Context, profileID uuid.UUID, input ListOrdersInput) (*OrderListResult, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	AssignDriver(ctx context.Context, actor Actor, orderID uuid.UUID, input AssignDriverInput) (*OrderDTO, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outboxPublisher
}

// NewService builds the orders service.
func NewService(tx txRunner, repo Repository, publisher outboxPublisher) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	return &service{tx: tx, repo: repo, outbox: publisher}, nil
}

func (s *service) List(ctx context.Context, profileID uuid.UUID, input ListOrdersInput) (*OrderListResult, error) {
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		parsed, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.ListByProfile(ctx, profileID, input.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	result := &OrderListResult{Items: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, fromModel(&rows[i], false))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ProfileID != actor.ProfileID && !sellerHasLine(order.Items, actor.ProfileID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another profile")
	}
	dto := fromModel(order, true)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if err := s.authorizeTransition(order, actor, input.Status); err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
				WithDetails(map[string]any{"from": order.Status, "to": input.Status})
		}

		affected, err := repo.UpdateStatusGuarded(ctx, orderID, order.Status, input.Status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ProfileID: actor.ProfileID, Role: actor.Role.String()},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				BuyerID:   order.ProfileID,
				From:      order.Status,
				To:        input.Status,
				ChangedAt: time.Now().UTC(),
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit status change event")
		}

		order.Status = input.Status
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(updated, true)
	return &dto, nil
}

func (s *service) AssignDriver(ctx context.Context, actor Actor, orderID uuid.UUID, input AssignDriverInput) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	driver := strings.TrimSpace(input.DriverName)
	if driver == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver name required")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.ProfileRoleSeller || !sellerHasLine(order.Items, actor.ProfileID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only a seller on the order may assign a driver")
	}
	if order.Status == enums.OrderStatusDelivered || order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already settled")
	}

	affected, err := s.repo.AssignDriver(ctx, orderID, driver, input.EstimatedDelivery)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign driver")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	order.DriverAssigned = &driver
	order.EstimatedDelivery = input.EstimatedDelivery
	dto := fromModel(order, true)
	return &dto, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// authorizeTransition lets the buyer cancel before shipment and sellers on the
// order drive fulfillment states.
func (s *service) authorizeTransition(order *models.Order, actor Actor, next enums.OrderStatus) error {
	if next == enums.OrderStatusCancelled && order.ProfileID == actor.ProfileID {
		return nil
	}
	if actor.Role == enums.ProfileRoleSeller && sellerHasLine(order.Items, actor.ProfileID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this order")
}
