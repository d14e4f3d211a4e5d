package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
)

type fakeAnalyticsRepo struct {
	rows     []SalesRow
	lifetime map[uuid.UUID]*models.SellerAnalytics
	sellerID uuid.UUID
}

func (f *fakeAnalyticsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAnalyticsRepo) ApplyOrder(ctx context.Context, line payloads.SellerLine) error {
	if f.lifetime == nil {
		f.lifetime = map[uuid.UUID]*models.SellerAnalytics{}
	}
	row := f.lifetime[line.SellerID]
	if row == nil {
		row = &models.SellerAnalytics{SellerID: line.SellerID}
		f.lifetime[line.SellerID] = row
	}
	row.TotalOrders++
	row.TotalItemsSold += int64(line.QuantitySold)
	row.TotalRevenueCents += int64(line.AmountCents)
	return nil
}

func (f *fakeAnalyticsRepo) SalesBetween(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]SalesRow, error) {
	var out []SalesRow
	if sellerID != f.sellerID {
		return out, nil
	}
	for _, row := range f.rows {
		if !row.OrderedAt.Before(from) && row.OrderedAt.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeAnalyticsRepo) LifetimeTotals(ctx context.Context, sellerID uuid.UUID) (*models.SellerAnalytics, error) {
	if row, ok := f.lifetime[sellerID]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func expectAnalyticsCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%s)", code, appErr.Code(), appErr.Message())
	}
}

// testNow pins the clock so window boundaries are stable.
var testNow = time.Date(2026, 5, 15, 13, 30, 0, 0, time.UTC)

func newSummaryFixture(t *testing.T, repo *fakeAnalyticsRepo) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.(*service).now = func() time.Time { return testNow }
	return svc
}

func salesRow(orderID uuid.UUID, name, category string, qty int, cents int64, at time.Time) SalesRow {
	return SalesRow{
		OrderID:        orderID,
		ProductID:      uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
		ProductName:    name,
		Category:       category,
		Quantity:       qty,
		LineTotalCents: cents,
		OrderedAt:      at,
	}
}

func TestSummaryAggregatesWindow(t *testing.T) {
	sellerID := uuid.New()
	orderA := uuid.New()
	orderB := uuid.New()
	orderPrior := uuid.New()

	twoDaysAgo := testNow.AddDate(0, 0, -2)
	fiveDaysAgo := testNow.AddDate(0, 0, -5)
	tenDaysAgo := testNow.AddDate(0, 0, -10)

	repo := &fakeAnalyticsRepo{
		sellerID: sellerID,
		rows: []SalesRow{
			salesRow(orderA, "Ceramic Mug", "kitchen", 2, 2500, twoDaysAgo),
			salesRow(orderA, "Tea Towel", "kitchen", 1, 1200, twoDaysAgo),
			salesRow(orderB, "Desk Lamp", "home", 1, 4300, fiveDaysAgo),
			// Prior window only.
			salesRow(orderPrior, "Ceramic Mug", "kitchen", 1, 4000, tenDaysAgo),
		},
		lifetime: map[uuid.UUID]*models.SellerAnalytics{
			sellerID: {SellerID: sellerID, TotalOrders: 12, TotalItemsSold: 30, TotalRevenueCents: 90000},
		},
	}
	svc := newSummaryFixture(t, repo)

	summary, err := svc.Summary(context.Background(), sellerID, 7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if summary.TotalRevenueCents != 8000 {
		t.Fatalf("total revenue = %d, want 8000", summary.TotalRevenueCents)
	}
	if summary.OrderCount != 2 {
		t.Fatalf("order count = %d, want 2", summary.OrderCount)
	}
	if summary.AverageOrderValueCents != 4000 {
		t.Fatalf("aov = %d, want 4000", summary.AverageOrderValueCents)
	}
	// 8000 now vs 4000 prior.
	if summary.GrowthPercent != 100 {
		t.Fatalf("growth = %v, want 100", summary.GrowthPercent)
	}

	if len(summary.Daily) != 7 {
		t.Fatalf("daily series length = %d, want 7", len(summary.Daily))
	}
	var busyDay *DailyPoint
	var emptyDays int
	for i := range summary.Daily {
		point := &summary.Daily[i]
		if point.Date == twoDaysAgo.Format("2006-01-02") {
			busyDay = point
		}
		if point.RevenueCents == 0 && point.Orders == 0 {
			emptyDays++
		}
	}
	if busyDay == nil {
		t.Fatal("missing series entry for sale day")
	}
	if busyDay.RevenueCents != 3700 || busyDay.Orders != 1 {
		t.Fatalf("busy day = %+v, want revenue 3700 orders 1", busyDay)
	}
	if emptyDays != 5 {
		t.Fatalf("zero-filled days = %d, want 5", emptyDays)
	}

	if len(summary.TopProducts) != 3 {
		t.Fatalf("top products = %d, want 3", len(summary.TopProducts))
	}
	if summary.TopProducts[0].Name != "Desk Lamp" || summary.TopProducts[0].RevenueCents != 4300 {
		t.Fatalf("top product = %+v, want Desk Lamp 4300", summary.TopProducts[0])
	}

	if len(summary.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(summary.Categories))
	}
	if summary.Categories[0].Category != "home" || summary.Categories[0].RevenueCents != 4300 {
		t.Fatalf("leading category = %+v, want home 4300", summary.Categories[0])
	}
	if summary.Categories[1].RevenueCents != 3700 || summary.Categories[1].ItemsSold != 3 {
		t.Fatalf("kitchen category = %+v, want 3700 / 3 items", summary.Categories[1])
	}

	if summary.Lifetime.TotalRevenueCents != 90000 || summary.Lifetime.TotalOrders != 12 {
		t.Fatalf("lifetime totals = %+v", summary.Lifetime)
	}
}

func TestSummaryEmptyWindows(t *testing.T) {
	sellerID := uuid.New()
	repo := &fakeAnalyticsRepo{sellerID: sellerID}
	svc := newSummaryFixture(t, repo)

	summary, err := svc.Summary(context.Background(), sellerID, 30)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalRevenueCents != 0 || summary.OrderCount != 0 || summary.GrowthPercent != 0 {
		t.Fatalf("expected zeroed summary, got %+v", summary)
	}
	if len(summary.Daily) != 30 {
		t.Fatalf("daily series length = %d, want 30", len(summary.Daily))
	}
	if summary.Lifetime.TotalOrders != 0 {
		t.Fatalf("expected zero lifetime totals, got %+v", summary.Lifetime)
	}
}

func TestSummaryGrowthAgainstQuietPrior(t *testing.T) {
	sellerID := uuid.New()
	orderID := uuid.New()
	repo := &fakeAnalyticsRepo{
		sellerID: sellerID,
		rows: []SalesRow{
			salesRow(orderID, "Ceramic Mug", "kitchen", 1, 1000, testNow.AddDate(0, 0, -1)),
		},
	}
	svc := newSummaryFixture(t, repo)

	summary, err := svc.Summary(context.Background(), sellerID, 7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.GrowthPercent != 100 {
		t.Fatalf("growth vs empty prior = %v, want 100", summary.GrowthPercent)
	}
}

func TestSummaryValidation(t *testing.T) {
	repo := &fakeAnalyticsRepo{}
	svc := newSummaryFixture(t, repo)
	ctx := context.Background()

	_, err := svc.Summary(ctx, uuid.Nil, 7)
	expectAnalyticsCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Summary(ctx, uuid.New(), 14)
	expectAnalyticsCode(t, err, pkgerrors.CodeValidation)
}

func TestRollupAppliesEachSellerLine(t *testing.T) {
	repo := &fakeAnalyticsRepo{}
	rollup := newTestRollup(t, repo)

	sellerA := uuid.New()
	sellerB := uuid.New()
	event := payloads.OrderCreatedEvent{
		OrderID: uuid.New(),
		BuyerID: uuid.New(),
		SellerLines: []payloads.SellerLine{
			{SellerID: sellerA, ItemCount: 2, QuantitySold: 3, AmountCents: 3700},
			{SellerID: sellerB, ItemCount: 1, QuantitySold: 1, AmountCents: 4300},
		},
	}

	applied, err := rollup.Apply(context.Background(), event)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied = %d, want 2", applied)
	}

	rowA := repo.lifetime[sellerA]
	if rowA == nil || rowA.TotalOrders != 1 || rowA.TotalItemsSold != 3 || rowA.TotalRevenueCents != 3700 {
		t.Fatalf("seller A rollup = %+v", rowA)
	}

	// A second order accumulates.
	if _, err := rollup.Apply(context.Background(), event); err != nil {
		t.Fatalf("Apply again: %v", err)
	}
	if rowA.TotalOrders != 2 || rowA.TotalRevenueCents != 7400 {
		t.Fatalf("seller A after second order = %+v", rowA)
	}
}
