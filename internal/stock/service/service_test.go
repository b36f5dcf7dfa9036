package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"
)

type fakeStore struct {
	items       map[int64]*models.MenuItem
	adjustments []*models.StockAdjustment
	failFor     map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:   make(map[int64]*models.MenuItem),
		failFor: make(map[int64]bool),
	}
}

func (f *fakeStore) DecrementStock(_ context.Context, menuItemID int64, qty int) (*models.MenuItem, error) {
	return f.apply(menuItemID, -qty)
}

func (f *fakeStore) ApplyAdjustment(_ context.Context, menuItemID int64, delta int) (*models.MenuItem, error) {
	return f.apply(menuItemID, delta)
}

func (f *fakeStore) apply(menuItemID int64, delta int) (*models.MenuItem, error) {
	if f.failFor[menuItemID] {
		return nil, errors.New("update failed")
	}
	item, ok := f.items[menuItemID]
	if !ok {
		return nil, errors.New("menu item not found")
	}
	item.StockCount += delta
	if item.StockCount < 0 {
		item.StockCount = 0
	}
	cp := *item
	return &cp, nil
}

func (f *fakeStore) InsertAdjustment(_ context.Context, a *models.StockAdjustment) (int64, error) {
	f.adjustments = append(f.adjustments, a)
	return int64(len(f.adjustments)), nil
}

type capturingPublisher struct {
	alerts []models.StockAlertMessage
}

func (p *capturingPublisher) PublishMessage(exchange, _ string, body []byte, _ uint8) error {
	if exchange != rabbitmq.NotificationsExchange {
		return nil
	}
	var alert models.StockAlertMessage
	if err := json.Unmarshal(body, &alert); err == nil && alert.Level != "" {
		p.alerts = append(p.alerts, alert)
	}
	return nil
}

func newTestUpdater(store *fakeStore, pub *capturingPublisher) *Updater {
	return NewUpdater(store, pub, logger.NewLogger("stock-test"))
}

func TestApplyOrderDeduction(t *testing.T) {
	store := newFakeStore()
	store.items[1] = &models.MenuItem{ID: 1, Name: "Margherita Pizza", StockCount: 5, LowStockAlert: 1}
	updater := newTestUpdater(store, &capturingPublisher{})

	err := updater.ApplyOrderDeduction(context.Background(), []models.OrderItem{
		{MenuItemID: 1, Quantity: 3},
	}, "req-1")
	if err != nil {
		t.Fatalf("ApplyOrderDeduction: %v", err)
	}

	if got := store.items[1].StockCount; got != 2 {
		t.Errorf("stock = %d, want 2", got)
	}
}

func TestDeductionRaisesLowStockAlert(t *testing.T) {
	store := newFakeStore()
	store.items[1] = &models.MenuItem{ID: 1, Name: "Margherita Pizza", StockCount: 5, LowStockAlert: 5}
	pub := &capturingPublisher{}
	updater := newTestUpdater(store, pub)

	if err := updater.ApplyOrderDeduction(context.Background(), []models.OrderItem{
		{MenuItemID: 1, Quantity: 2},
	}, "req-1"); err != nil {
		t.Fatal(err)
	}

	if len(pub.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(pub.alerts))
	}
	alert := pub.alerts[0]
	if alert.Level != models.StockAlertLow || alert.StockCount != 3 {
		t.Errorf("alert = %+v, want low_stock at count 3", alert)
	}
}

func TestDeductionRaisesOutOfStockAlert(t *testing.T) {
	store := newFakeStore()
	store.items[1] = &models.MenuItem{ID: 1, Name: "Tiramisu", StockCount: 2, LowStockAlert: 5}
	pub := &capturingPublisher{}
	updater := newTestUpdater(store, pub)

	if err := updater.ApplyOrderDeduction(context.Background(), []models.OrderItem{
		{MenuItemID: 1, Quantity: 2},
	}, "req-1"); err != nil {
		t.Fatal(err)
	}

	if len(pub.alerts) != 1 || pub.alerts[0].Level != models.StockAlertOut {
		t.Fatalf("alerts = %+v, want a single out_of_stock alert", pub.alerts)
	}
}

func TestDeductionContinuesPastFailingLine(t *testing.T) {
	store := newFakeStore()
	store.items[1] = &models.MenuItem{ID: 1, Name: "Margherita Pizza", StockCount: 5, LowStockAlert: 1}
	store.items[2] = &models.MenuItem{ID: 2, Name: "Cola", StockCount: 10, LowStockAlert: 2}
	store.failFor[1] = true
	updater := newTestUpdater(store, &capturingPublisher{})

	err := updater.ApplyOrderDeduction(context.Background(), []models.OrderItem{
		{MenuItemID: 1, Quantity: 1},
		{MenuItemID: 2, Quantity: 4},
	}, "req-1")
	if err == nil {
		t.Fatal("expected an error for the failing line")
	}

	if got := store.items[2].StockCount; got != 6 {
		t.Errorf("remaining lines must still be deducted, stock = %d, want 6", got)
	}
}

func TestAdjustWritesAuditTrail(t *testing.T) {
	store := newFakeStore()
	store.items[1] = &models.MenuItem{ID: 1, Name: "Margherita Pizza", StockCount: 2, LowStockAlert: 1}
	updater := newTestUpdater(store, &capturingPublisher{})

	item, err := updater.Adjust(context.Background(), &models.AdjustStockRequest{
		MenuItemID: 1,
		Delta:      10,
		Reason:     "weekly delivery",
	}, "req-1")
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}

	if item.StockCount != 12 {
		t.Errorf("stock = %d, want 12", item.StockCount)
	}
	if len(store.adjustments) != 1 || store.adjustments[0].Reason != "weekly delivery" {
		t.Errorf("audit trail = %+v, want one entry with the reason", store.adjustments)
	}
}
