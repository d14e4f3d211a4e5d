package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sellgrid/marketplace-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"CHECK (total_cents >= 0)",
		"DROP TABLE IF EXISTS order_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSellerNotificationsMigrationEnforcesDedup(t *testing.T) {
	content := readMigration(t, "*_create_seller_notifications.sql")

	if !strings.Contains(content, "CREATE UNIQUE INDEX ux_seller_notifications_order_seller ON seller_notifications (order_id, seller_id)") {
		t.Error("missing unique (order_id, seller_id) index")
	}
}

func TestCartItemsMigrationEnforcesSingleRowPerProduct(t *testing.T) {
	content := readMigration(t, "*_create_cart_items.sql")

	if !strings.Contains(content, "CREATE UNIQUE INDEX ux_cart_items_profile_product ON cart_items (profile_id, product_id)") {
		t.Error("missing unique (profile_id, product_id) index")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
