package notifications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	pkgdb "github.com/sellgrid/marketplace-backend/pkg/db"
	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
)

const orderSellerUniqueConstraint = "ux_seller_notifications_order_seller"

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Dispatcher fans an order out into one notification per distinct seller.
// Re-dispatching the same order inserts nothing thanks to the
// (order, seller) unique constraint.
type Dispatcher struct {
	repo   Repository
	orders orderLoader
	logg   *logger.Logger
}

// NewDispatcher builds the notification dispatcher.
func NewDispatcher(repo Repository, orders orderLoader, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order loader required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Dispatcher{repo: repo, orders: orders, logg: logg}, nil
}

// Dispatch creates the per-seller notifications for one order and returns how
// many rows were actually inserted.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID uuid.UUID) (int, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := d.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	itemsBySeller := map[uuid.UUID][]models.OrderItem{}
	for _, item := range order.Items {
		itemsBySeller[item.SellerID] = append(itemsBySeller[item.SellerID], item)
	}

	sellerIDs := make([]uuid.UUID, 0, len(itemsBySeller))
	for sellerID := range itemsBySeller {
		sellerIDs = append(sellerIDs, sellerID)
	}
	sort.Slice(sellerIDs, func(i, j int) bool {
		return sellerIDs[i].String() < sellerIDs[j].String()
	})

	// One seller failing must not block the rest of the fan-out.
	sent := 0
	var errs []error
	logCtx := d.logg.WithField(ctx, "order_id", order.ID.String())
	for _, sellerID := range sellerIDs {
		notification := &models.SellerNotification{
			SellerID: sellerID,
			OrderID:  order.ID,
			Message:  composeSellerMessage(order, itemsBySeller[sellerID]),
		}
		if err := d.repo.Create(ctx, notification); err != nil {
			if pkgdb.IsUniqueViolation(err, orderSellerUniqueConstraint) {
				d.logg.Info(d.logg.WithField(logCtx, "seller_id", sellerID.String()),
					"notification already dispatched")
				continue
			}
			errs = append(errs, fmt.Errorf("seller %s: %w", sellerID, err))
			continue
		}
		sent++
	}

	if combined := multierr.Combine(errs...); combined != nil {
		return sent, pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "create seller notifications")
	}

	d.logg.Info(d.logg.WithField(logCtx, "notifications_sent", fmt.Sprint(sent)),
		"seller notifications dispatched")
	return sent, nil
}

func composeSellerMessage(order *models.Order, items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	sellerTotal := 0
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.ProductName))
		sellerTotal += item.LineTotalCents
	}

	var b strings.Builder
	fmt.Fprintf(&b, "New order %s: %s.", shortOrderRef(order.ID), strings.Join(parts, ", "))
	fmt.Fprintf(&b, " Your total: $%s.", formatCents(sellerTotal))
	fmt.Fprintf(&b, " Order total: $%s.", formatCents(order.TotalCents))
	if order.ShippingAddress != "" {
		fmt.Fprintf(&b, " Ship to: %s.", order.ShippingAddress)
	}
	return b.String()
}

func shortOrderRef(id uuid.UUID) string {
	return strings.Split(id.String(), "-")[0]
}

func formatCents(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}
