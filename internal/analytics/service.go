package analytics

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
)

const topProductLimit = 10

// Service computes seller dashboard summaries.
type Service interface {
	Summary(ctx context.Context, sellerID uuid.UUID, windowDays int) (*Summary, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the analytics query service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "analytics repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Summary aggregates the seller's sales for the window and the trailing prior
// window of equal length. All math runs in application code over the joined
// order lines.
func (s *service) Summary(ctx context.Context, sellerID uuid.UUID, windowDays int) (*Summary, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if !supportedWindows[windowDays] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "window must be 7, 30 or 90 days").
			WithDetails(map[string]any{"window_days": windowDays})
	}

	now := s.now().UTC()
	// Windows align to day boundaries so the series has whole days only.
	to := now.Truncate(24 * time.Hour).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -windowDays)
	prevFrom := from.AddDate(0, 0, -windowDays)

	rows, err := s.repo.SalesBetween(ctx, sellerID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load window sales")
	}
	prevRows, err := s.repo.SalesBetween(ctx, sellerID, prevFrom, from)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load prior window sales")
	}

	summary := &Summary{
		WindowDays:  windowDays,
		Daily:       emptySeries(from, windowDays),
		TopProducts: []TopProduct{},
		Categories:  []CategoryStat{},
	}

	orderIDs := map[uuid.UUID]bool{}
	dailyOrders := map[string]map[uuid.UUID]bool{}
	products := map[uuid.UUID]*TopProduct{}
	categories := map[string]*CategoryStat{}
	dailyIndex := map[string]int{}
	for i := range summary.Daily {
		dailyIndex[summary.Daily[i].Date] = i
	}

	for _, row := range rows {
		summary.TotalRevenueCents += row.LineTotalCents
		orderIDs[row.OrderID] = true

		day := row.OrderedAt.UTC().Format("2006-01-02")
		if idx, ok := dailyIndex[day]; ok {
			summary.Daily[idx].RevenueCents += row.LineTotalCents
			if dailyOrders[day] == nil {
				dailyOrders[day] = map[uuid.UUID]bool{}
			}
			if !dailyOrders[day][row.OrderID] {
				dailyOrders[day][row.OrderID] = true
				summary.Daily[idx].Orders++
			}
		}

		product := products[row.ProductID]
		if product == nil {
			product = &TopProduct{ProductID: row.ProductID, Name: row.ProductName}
			products[row.ProductID] = product
		}
		product.RevenueCents += row.LineTotalCents
		product.QuantitySold += row.Quantity

		category := categories[row.Category]
		if category == nil {
			category = &CategoryStat{Category: row.Category}
			categories[row.Category] = category
		}
		category.RevenueCents += row.LineTotalCents
		category.ItemsSold += row.Quantity
	}

	summary.OrderCount = len(orderIDs)
	if summary.OrderCount > 0 {
		summary.AverageOrderValueCents = summary.TotalRevenueCents / int64(summary.OrderCount)
	}

	var prevRevenue int64
	for _, row := range prevRows {
		prevRevenue += row.LineTotalCents
	}
	summary.GrowthPercent = growthPercent(summary.TotalRevenueCents, prevRevenue)

	for _, product := range products {
		summary.TopProducts = append(summary.TopProducts, *product)
	}
	sort.Slice(summary.TopProducts, func(i, j int) bool {
		if summary.TopProducts[i].RevenueCents != summary.TopProducts[j].RevenueCents {
			return summary.TopProducts[i].RevenueCents > summary.TopProducts[j].RevenueCents
		}
		return summary.TopProducts[i].Name < summary.TopProducts[j].Name
	})
	if len(summary.TopProducts) > topProductLimit {
		summary.TopProducts = summary.TopProducts[:topProductLimit]
	}

	for _, category := range categories {
		summary.Categories = append(summary.Categories, *category)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		if summary.Categories[i].RevenueCents != summary.Categories[j].RevenueCents {
			return summary.Categories[i].RevenueCents > summary.Categories[j].RevenueCents
		}
		return summary.Categories[i].Category < summary.Categories[j].Category
	})

	lifetime, err := s.repo.LifetimeTotals(ctx, sellerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load lifetime totals")
	}
	if lifetime != nil {
		summary.Lifetime = LifetimeTotals{
			TotalOrders:       lifetime.TotalOrders,
			TotalItemsSold:    lifetime.TotalItemsSold,
			TotalRevenueCents: lifetime.TotalRevenueCents,
		}
	}

	return summary, nil
}

func emptySeries(from time.Time, days int) []DailyPoint {
	series := make([]DailyPoint, 0, days)
	for i := 0; i < days; i++ {
		series = append(series, DailyPoint{Date: from.AddDate(0, 0, i).Format("2006-01-02")})
	}
	return series
}

// growthPercent compares current revenue against the prior window. A prior
// window with no sales reports 100% growth when anything sold, 0 otherwise.
func growthPercent(current, prior int64) float64 {
	if prior == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	growth := (float64(current) - float64(prior)) / float64(prior) * 100
	return math.Round(growth*100) / 100
}
