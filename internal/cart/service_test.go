package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
)

type lineKey struct {
	profileID uuid.UUID
	productID uuid.UUID
}

type fakeLineStore struct {
	lines    map[lineKey]int
	products map[uuid.UUID]*models.Product
}

func newFakeLineStore(products map[uuid.UUID]*models.Product) *fakeLineStore {
	return &fakeLineStore{
		lines:    map[lineKey]int{},
		products: products,
	}
}

func (f *fakeLineStore) FindLine(_ context.Context, profileID, productID uuid.UUID) (*models.CartItem, error) {
	qty, ok := f.lines[lineKey{profileID, productID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.CartItem{ProfileID: profileID, ProductID: productID, Quantity: qty}, nil
}

func (f *fakeLineStore) ListByProfile(_ context.Context, profileID uuid.UUID) ([]models.CartItem, error) {
	var out []models.CartItem
	for key, qty := range f.lines {
		if key.profileID != profileID {
			continue
		}
		out = append(out, models.CartItem{
			ProfileID: key.profileID,
			ProductID: key.productID,
			Quantity:  qty,
			Product:   f.products[key.productID],
		})
	}
	return out, nil
}

func (f *fakeLineStore) SetQuantity(_ context.Context, profileID, productID uuid.UUID, quantity int) error {
	f.lines[lineKey{profileID, productID}] = quantity
	return nil
}

func (f *fakeLineStore) DeleteLine(_ context.Context, profileID, productID uuid.UUID) (bool, error) {
	key := lineKey{profileID, productID}
	if _, ok := f.lines[key]; !ok {
		return false, nil
	}
	delete(f.lines, key)
	return true, nil
}

func (f *fakeLineStore) Clear(_ context.Context, profileID uuid.UUID) error {
	for key := range f.lines {
		if key.profileID == profileID {
			delete(f.lines, key)
		}
	}
	return nil
}

type fakeProductReader struct {
	products map[uuid.UUID]*models.Product
}

func (f *fakeProductReader) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func newTestService(t *testing.T, products map[uuid.UUID]*models.Product) (Service, *fakeLineStore) {
	t.Helper()

	store := newFakeLineStore(products)
	svc, err := NewService(store, &fakeProductReader{products: products})
	if err != nil {
		t.Fatalf("build cart service: %v", err)
	}
	return svc, store
}

func testProduct(priceCents, stock int) *models.Product {
	return &models.Product{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Name:          "Test Product",
		PriceCents:    priceCents,
		StockQuantity: stock,
		Category:      "general",
		IsActive:      true,
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	product := testProduct(1000, 5)
	svc, _ := newTestService(t, map[uuid.UUID]*models.Product{product.ID: product})
	buyer := uuid.New()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, buyer, product.ID)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if cart.Totals.ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", cart.Totals.ItemCount)
	}

	cart, err = svc.AddItem(ctx, buyer, product.ID)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("expected single line qty 2, got %+v", cart.Items)
	}
	if cart.Totals.SubtotalCents != 2000 {
		t.Fatalf("expected subtotal 2000, got %d", cart.Totals.SubtotalCents)
	}
	if cart.Totals.Subtotal != "20.00" {
		t.Fatalf("expected formatted subtotal 20.00, got %s", cart.Totals.Subtotal)
	}
}

func TestAddItemRejectsStockShortfall(t *testing.T) {
	product := testProduct(500, 1)
	svc, _ := newTestService(t, map[uuid.UUID]*models.Product{product.ID: product})
	buyer := uuid.New()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, buyer, product.ID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := svc.AddItem(ctx, buyer, product.ID)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestAddItemRejectsInactiveAndMissingProduct(t *testing.T) {
	product := testProduct(500, 5)
	product.IsActive = false
	svc, _ := newTestService(t, map[uuid.UUID]*models.Product{product.ID: product})
	buyer := uuid.New()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, buyer, product.ID)
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AddItem(ctx, buyer, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	product := testProduct(750, 10)
	svc, store := newTestService(t, map[uuid.UUID]*models.Product{product.ID: product})
	buyer := uuid.New()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, buyer, product.ID); err != nil {
		t.Fatalf("seed line: %v", err)
	}
	cart, err := svc.UpdateQuantity(ctx, buyer, product.ID, 0)
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if len(cart.Items) != 0 || len(store.lines) != 0 {
		t.Fatalf("expected empty cart after zero quantity, got %+v", cart.Items)
	}
}

func TestUpdateQuantitySetsExactValue(t *testing.T) {
	product := testProduct(750, 10)
	svc, _ := newTestService(t, map[uuid.UUID]*models.Product{product.ID: product})
	buyer := uuid.New()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, buyer, product.ID); err != nil {
		t.Fatalf("seed line: %v", err)
	}
	cart, err := svc.UpdateQuantity(ctx, buyer, product.ID, 4)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if cart.Items[0].Quantity != 4 || cart.Totals.SubtotalCents != 3000 {
		t.Fatalf("expected qty 4 subtotal 3000, got qty %d subtotal %d",
			cart.Items[0].Quantity, cart.Totals.SubtotalCents)
	}

	_, err = svc.UpdateQuantity(ctx, buyer, uuid.New(), 2)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemoveMissingLine(t *testing.T) {
	svc, _ := newTestService(t, map[uuid.UUID]*models.Product{})

	_, err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestCartTotalsProperty(t *testing.T) {
	first := testProduct(1250, 10)
	second := testProduct(300, 10)
	svc, _ := newTestService(t, map[uuid.UUID]*models.Product{
		first.ID:  first,
		second.ID: second,
	})
	buyer := uuid.New()
	ctx := context.Background()

	if _, err := svc.UpdateQuantity(ctx, buyer, first.ID, 3); err == nil {
		t.Fatal("expected not found before any add")
	}
	if _, err := svc.AddItem(ctx, buyer, first.ID); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if _, err := svc.UpdateQuantity(ctx, buyer, first.ID, 3); err != nil {
		t.Fatalf("set first qty: %v", err)
	}
	if _, err := svc.AddItem(ctx, buyer, second.ID); err != nil {
		t.Fatalf("add second: %v", err)
	}

	cart, err := svc.Get(ctx, buyer)
	if err != nil {
		t.Fatalf("load cart: %v", err)
	}

	wantCount := 0
	wantTotal := 0
	for _, item := range cart.Items {
		wantCount += item.Quantity
		wantTotal += item.Quantity * item.UnitPriceCents
	}
	if cart.Totals.ItemCount != wantCount {
		t.Fatalf("item count %d does not match sum of quantities %d", cart.Totals.ItemCount, wantCount)
	}
	if cart.Totals.SubtotalCents != wantTotal {
		t.Fatalf("subtotal %d does not match sum of line totals %d", cart.Totals.SubtotalCents, wantTotal)
	}
}
