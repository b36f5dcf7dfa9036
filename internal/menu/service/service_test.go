package service

import (
	"context"
	"testing"

	"mesa/pkg/logger"
	"mesa/pkg/models"
)

type fakeStore struct {
	items []models.MenuItem
}

func (f *fakeStore) ListItems(_ context.Context) ([]models.MenuItem, error) {
	return f.items, nil
}

func testCatalog() *CatalogService {
	store := &fakeStore{items: []models.MenuItem{
		{ID: 1, Name: "Margherita Pizza", StockCount: 10, LowStockAlert: 5, IsAvailable: true},
		{ID: 2, Name: "Pepperoni Pizza", StockCount: 3, LowStockAlert: 5, IsAvailable: true},
		{ID: 3, Name: "Tiramisu", StockCount: 0, LowStockAlert: 5, IsAvailable: true},
		{ID: 4, Name: "Seasonal Soup", StockCount: 8, LowStockAlert: 2, IsAvailable: false},
	}}
	return NewCatalogService(store, logger.NewLogger("menu-test"))
}

func TestAvailableItems(t *testing.T) {
	items, err := testCatalog().AvailableItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 available items, got %d", len(items))
	}
	for _, item := range items {
		if item.ID == 3 {
			t.Error("out-of-stock item must be excluded from available items")
		}
		if item.ID == 4 {
			t.Error("unavailable item must be excluded from available items")
		}
	}
}

func TestLowStockItems(t *testing.T) {
	items, err := testCatalog().LowStockItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("low-stock set = %+v, want only item 2", items)
	}
}

func TestOutOfStockItems(t *testing.T) {
	items, err := testCatalog().OutOfStockItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 || items[0].ID != 3 {
		t.Fatalf("out-of-stock set = %+v, want only item 3", items)
	}
}
