package analytics

import (
	"context"

	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
)

// Rollup folds order events into per-seller lifetime totals.
type Rollup struct {
	repo Repository
	logg *logger.Logger
}

// NewRollup builds the analytics rollup applier.
func NewRollup(repo Repository, logg *logger.Logger) (*Rollup, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "analytics repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Rollup{repo: repo, logg: logg}, nil
}

// Apply increments each seller's rollup row with their share of the order.
// It returns the number of sellers touched.
func (r *Rollup) Apply(ctx context.Context, event payloads.OrderCreatedEvent) (int, error) {
	applied := 0
	for _, line := range event.SellerLines {
		if err := r.repo.ApplyOrder(ctx, line); err != nil {
			return applied, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply seller rollup").
				WithDetails(map[string]any{
					"order_id":  event.OrderID.String(),
					"seller_id": line.SellerID.String(),
				})
		}
		applied++
	}
	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"order_id":        event.OrderID.String(),
		"sellers_applied": applied,
	}), "order folded into seller analytics")
	return applied, nil
}
