package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	billingdb "mesa/internal/billing/db"
	"mesa/internal/billing/receipt"
	"mesa/pkg/logger"
	"mesa/pkg/models"
)

type fakeStore struct {
	order       *models.Order
	items       []models.OrderItem
	tableLabels map[int64]string
	completed   bool
	payment     string
}

func (f *fakeStore) GetOrderByNumber(_ context.Context, number string) (*models.Order, error) {
	if f.order == nil || f.order.Number != number {
		return nil, errors.New("order not found")
	}
	cp := *f.order
	return &cp, nil
}

func (f *fakeStore) GetOrderItems(_ context.Context, _ int64) ([]models.OrderItem, error) {
	return f.items, nil
}

func (f *fakeStore) GetTableLabel(_ context.Context, sessionID int64) (string, error) {
	label, ok := f.tableLabels[sessionID]
	if !ok {
		return "", errors.New("table session not found")
	}
	return label, nil
}

func (f *fakeStore) CompleteOrder(_ context.Context, _ int64, paymentMethod string) error {
	if f.completed {
		return billingdb.ErrAlreadyCompleted
	}
	f.completed = true
	f.payment = paymentMethod
	return nil
}

func (f *fakeStore) LogOrderStatus(_ context.Context, _ int64, _, _, _ string) error {
	return nil
}

type fakeKitchen struct {
	order  *models.KitchenOrder
	served bool
}

func (f *fakeKitchen) GetKitchenOrderByOrderNumber(_ context.Context, orderNumber string) (*models.KitchenOrder, error) {
	if f.order == nil || f.order.OrderNumber != orderNumber {
		return nil, errors.New("kitchen order not found")
	}
	cp := *f.order
	return &cp, nil
}

func (f *fakeKitchen) UpdateStatus(_ context.Context, _ int64, _, newStatus string) error {
	if newStatus == models.KitchenStatusServed {
		f.served = true
	}
	return nil
}

type fakeStock struct {
	deducted []models.OrderItem
	fail     bool
}

func (f *fakeStock) ApplyOrderDeduction(_ context.Context, items []models.OrderItem, _ string) error {
	if f.fail {
		return errors.New("stock service unavailable")
	}
	f.deducted = append(f.deducted, items...)
	return nil
}

type nilRenderer struct{}

func (nilRenderer) Generate(_ *receipt.Payload) *receipt.Receipt { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishMessage(_, _ string, _ []byte, _ uint8) error { return nil }

func fixtures() (*fakeStore, *fakeKitchen, *fakeStock) {
	store := &fakeStore{
		order: &models.Order{
			ID:          7,
			Number:      "ORD_20260829_001",
			Subtotal:    29.00,
			TaxAmount:   2.90,
			TotalAmount: 31.90,
			Status:      models.OrderStatusPreparing,
			StaffID:     "staff-1",
		},
		items: []models.OrderItem{
			{OrderID: 7, MenuItemID: 1, Name: "Margherita Pizza", Quantity: 2, UnitPrice: 14.50, TotalPrice: 29.00},
		},
		tableLabels: map[int64]string{},
	}
	kitchen := &fakeKitchen{
		order: &models.KitchenOrder{
			ID:          3,
			OrderID:     7,
			OrderNumber: "ORD_20260829_001",
			Status:      models.KitchenStatusReady,
		},
	}
	return store, kitchen, &fakeStock{}
}

func newFinalizer(store *fakeStore, kitchen *fakeKitchen, stock *fakeStock, renderer receipt.Renderer) *Finalizer {
	return NewFinalizer(store, kitchen, stock, renderer, receipt.ConsolePrinter{},
		nopPublisher{}, logger.NewLogger("billing-test"))
}

func billRequest() *models.BillOrderRequest {
	return &models.BillOrderRequest{PaymentMethod: "cash", StaffID: "staff-1"}
}

func TestFinalizeRequiresReadyStatus(t *testing.T) {
	store, kitchen, stock := fixtures()
	kitchen.order.Status = models.KitchenStatusPreparing
	f := newFinalizer(store, kitchen, stock, receipt.NewTextRenderer())

	_, err := f.Finalize(context.Background(), "ORD_20260829_001", billRequest(), "req-1")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if store.completed {
		t.Error("order must not be completed when the kitchen order is not ready")
	}
	if len(stock.deducted) != 0 {
		t.Error("no stock may be deducted when billing is rejected")
	}
}

func TestFinalizeCompletesAndDeducts(t *testing.T) {
	store, kitchen, stock := fixtures()
	f := newFinalizer(store, kitchen, stock, receipt.NewTextRenderer())

	rec, err := f.Finalize(context.Background(), "ORD_20260829_001", billRequest(), "req-1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if !store.completed || store.payment != "cash" {
		t.Error("order must be completed with the requested payment method")
	}
	if !kitchen.served {
		t.Error("kitchen order must be released from the board")
	}
	if len(stock.deducted) != 1 || stock.deducted[0].Quantity != 2 {
		t.Errorf("stock deduction items = %+v, want the order's line", stock.deducted)
	}
	if !strings.Contains(rec.Text, "ORD_20260829_001") || !strings.Contains(rec.Text, "takeout") {
		t.Errorf("unexpected receipt text:\n%s", rec.Text)
	}
}

func TestFinalizeSurvivesStockFailure(t *testing.T) {
	store, kitchen, stock := fixtures()
	stock.fail = true
	f := newFinalizer(store, kitchen, stock, receipt.NewTextRenderer())

	if _, err := f.Finalize(context.Background(), "ORD_20260829_001", billRequest(), "req-1"); err != nil {
		t.Fatalf("stock failure must not undo billing: %v", err)
	}
	if !store.completed {
		t.Error("order must remain completed after a stock deduction failure")
	}
}

func TestFinalizeReceiptFailure(t *testing.T) {
	store, kitchen, stock := fixtures()
	f := newFinalizer(store, kitchen, stock, nilRenderer{})

	_, err := f.Finalize(context.Background(), "ORD_20260829_001", billRequest(), "req-1")
	if !errors.Is(err, ErrReceiptFailed) {
		t.Fatalf("expected ErrReceiptFailed, got %v", err)
	}
	if !store.completed {
		t.Error("completion is not rolled back by a receipt failure")
	}
}

func TestFinalizeRetryAfterReceiptFailure(t *testing.T) {
	store, kitchen, stock := fixtures()

	broken := newFinalizer(store, kitchen, stock, nilRenderer{})
	if _, err := broken.Finalize(context.Background(), "ORD_20260829_001", billRequest(), "req-1"); !errors.Is(err, ErrReceiptFailed) {
		t.Fatalf("expected ErrReceiptFailed on the first attempt, got %v", err)
	}

	// The order is already completed; the retry must still produce the
	// receipt, release the kitchen order and deduct stock.
	working := newFinalizer(store, kitchen, stock, receipt.NewTextRenderer())
	rec, err := working.Finalize(context.Background(), "ORD_20260829_001", billRequest(), "req-2")
	if err != nil {
		t.Fatalf("retry after a receipt failure must succeed: %v", err)
	}
	if rec == nil || !strings.Contains(rec.Text, "ORD_20260829_001") {
		t.Errorf("retry must produce the receipt, got %+v", rec)
	}
	if !kitchen.served {
		t.Error("retry must release the kitchen order from the board")
	}
	if len(stock.deducted) != 1 {
		t.Errorf("retry must deduct stock once, got %d deductions", len(stock.deducted))
	}
}

func TestFinalizeUsesTableLabel(t *testing.T) {
	store, kitchen, stock := fixtures()
	sessionID := int64(12)
	store.order.TableSessionID = &sessionID
	store.tableLabels[sessionID] = "T4"
	f := newFinalizer(store, kitchen, stock, receipt.NewTextRenderer())

	rec, err := f.Finalize(context.Background(), "ORD_20260829_001", billRequest(), "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Text, "T4") {
		t.Errorf("receipt must carry the table label:\n%s", rec.Text)
	}
}
