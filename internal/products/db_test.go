package products

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("SELLGRID_DB_DSN")
	if dsn == "" {
		t.Skip("SELLGRID_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return conn
}

func mustCreateTestSeller(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@test.sellgrid.io",
		PasswordHash: "test-hash",
		DisplayName:  "Test Seller",
		Role:         enums.ProfileRoleSeller,
		IsActive:     true,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("seed seller profile: %v", err)
	}
	t.Cleanup(func() {
		db.Unscoped().Delete(&models.Profile{}, "id = ?", profile.ID)
	})
	return profile
}

func mustCreateTestProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, mutate func(*models.Product)) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:            uuid.New(),
		SellerID:      sellerID,
		Name:          "Test Widget",
		Description:   "a widget for tests",
		PriceCents:    1999,
		StockQuantity: 10,
		Category:      "widgets",
		IsActive:      true,
	}
	if mutate != nil {
		mutate(product)
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	t.Cleanup(func() {
		db.Unscoped().Delete(&models.Product{}, "id = ?", product.ID)
	})
	return product
}

func TestRepositoryDecrementStock(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := mustCreateTestSeller(t, db)
	product := mustCreateTestProduct(t, db, seller.ID, func(p *models.Product) {
		p.StockQuantity = 3
	})

	if err := repo.DecrementStock(ctx, product.ID, 2); err != nil {
		t.Fatalf("decrement within stock: %v", err)
	}

	refreshed, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if refreshed.StockQuantity != 1 {
		t.Fatalf("expected stock 1, got %d", refreshed.StockQuantity)
	}

	if err := repo.DecrementStock(ctx, product.ID, 2); err != ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestRepositoryUpdateFieldsScopedToSeller(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := mustCreateTestSeller(t, db)
	other := mustCreateTestSeller(t, db)
	product := mustCreateTestProduct(t, db, owner.ID, nil)

	affected, err := repo.UpdateFields(ctx, product.ID, other.ID, map[string]any{"name": "hijacked"})
	if err != nil {
		t.Fatalf("update as non-owner: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected zero rows for non-owner, got %d", affected)
	}

	affected, err = repo.UpdateFields(ctx, product.ID, owner.ID, map[string]any{"name": "renamed"})
	if err != nil {
		t.Fatalf("update as owner: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected one row for owner, got %d", affected)
	}
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := mustCreateTestSeller(t, db)
	mustCreateTestProduct(t, db, seller.ID, func(p *models.Product) {
		p.Name = "Ceramic Mug"
		p.Category = "kitchen"
	})
	mustCreateTestProduct(t, db, seller.ID, func(p *models.Product) {
		p.Name = "Steel Mug"
		p.Category = "kitchen"
	})
	mustCreateTestProduct(t, db, seller.ID, func(p *models.Product) {
		p.Name = "Desk Lamp"
		p.Category = "office"
		p.IsActive = false
	})

	rows, _, err := repo.List(ctx, ListParams{
		SellerID:   &seller.ID,
		Category:   "kitchen",
		ActiveOnly: true,
		Limit:      25,
	})
	if err != nil {
		t.Fatalf("list kitchen products: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 kitchen products, got %d", len(rows))
	}

	rows, _, err = repo.List(ctx, ListParams{
		SellerID:   &seller.ID,
		Search:     "mug",
		ActiveOnly: true,
		Limit:      25,
	})
	if err != nil {
		t.Fatalf("search products: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 search hits, got %d", len(rows))
	}

	page, next, err := repo.List(ctx, ListParams{
		SellerID: &seller.ID,
		Limit:    1,
	})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page) != 1 || next == nil {
		t.Fatalf("expected one row and a next cursor, got %d rows next=%v", len(page), next)
	}

	second, _, err := repo.List(ctx, ListParams{
		SellerID: &seller.ID,
		Limit:    1,
		Cursor:   next,
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 1 || second[0].ID == page[0].ID {
		t.Fatalf("expected a different row on the second page")
	}
}
