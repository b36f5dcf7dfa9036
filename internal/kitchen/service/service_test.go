package service

import (
	"context"
	"errors"
	"testing"

	"mesa/internal/kitchen/status"
	"mesa/pkg/logger"
	"mesa/pkg/models"
)

type fakeStore struct {
	orders map[int64]*models.KitchenOrder
	nextID int64
	logs   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[int64]*models.KitchenOrder)}
}

func (f *fakeStore) CreateKitchenOrder(_ context.Context, msg *models.KitchenOrderMessage) (int64, error) {
	f.nextID++
	f.orders[f.nextID] = &models.KitchenOrder{
		ID:            f.nextID,
		OrderID:       msg.OrderID,
		OrderNumber:   msg.OrderNumber,
		Status:        models.KitchenStatusPreparing,
		Items:         msg.Items,
		EstimatedTime: msg.EstimatedTime,
	}
	return f.nextID, nil
}

func (f *fakeStore) GetKitchenOrder(_ context.Context, id int64) (*models.KitchenOrder, error) {
	ko, ok := f.orders[id]
	if !ok {
		return nil, errors.New("kitchen order not found")
	}
	cp := *ko
	return &cp, nil
}

func (f *fakeStore) ListActive(_ context.Context) ([]models.KitchenOrder, error) {
	var active []models.KitchenOrder
	for _, ko := range f.orders {
		if ko.Status != models.KitchenStatusServed {
			active = append(active, *ko)
		}
	}
	return active, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, oldStatus, newStatus string) error {
	ko, ok := f.orders[id]
	if !ok || ko.Status != oldStatus {
		return errors.New("status conflict")
	}
	ko.Status = newStatus
	return nil
}

func (f *fakeStore) LogOrderStatus(_ context.Context, _ int64, status, _, _ string) error {
	f.logs = append(f.logs, status)
	return nil
}

type nopPublisher struct{}

func (nopPublisher) PublishMessage(_, _ string, _ []byte, _ uint8) error { return nil }

func newTestService(store *fakeStore) *KitchenService {
	return NewKitchenService(store, nopPublisher{}, logger.NewLogger("kitchen-test"))
}

func projected(t *testing.T, svc *KitchenService) int64 {
	t.Helper()
	id, err := svc.ProjectOrder(context.Background(), &models.KitchenOrderMessage{
		OrderID:     7,
		OrderNumber: "ORD_20260829_001",
		Items:       []models.KitchenItem{{Name: "Margherita Pizza", Quantity: 2}},
	}, "req-1")
	if err != nil {
		t.Fatalf("ProjectOrder: %v", err)
	}
	return id
}

func TestProjectOrderStartsPreparing(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	id := projected(t, svc)
	ko, err := svc.AdvanceStatus(context.Background(), id, models.KitchenStatusReady, "chef-1", "req-2")
	if err != nil {
		t.Fatal(err)
	}
	if ko.Status != models.KitchenStatusReady {
		t.Errorf("status = %q, want ready", ko.Status)
	}
	if store.orders[id].Status != models.KitchenStatusReady {
		t.Error("advance must persist the new status")
	}
}

func TestAdvanceStatusRejectsRegression(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	id := projected(t, svc)
	if _, err := svc.AdvanceStatus(ctx, id, models.KitchenStatusReady, "chef-1", "req-2"); err != nil {
		t.Fatal(err)
	}

	_, err := svc.AdvanceStatus(ctx, id, models.KitchenStatusPreparing, "chef-1", "req-3")
	if !errors.Is(err, status.ErrNotForward) {
		t.Fatalf("expected ErrNotForward, got %v", err)
	}
	if store.orders[id].Status != models.KitchenStatusReady {
		t.Error("rejected transition must not change the persisted status")
	}
}

func TestServedLeavesTheBoard(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	id := projected(t, svc)
	if _, err := svc.AdvanceStatus(ctx, id, models.KitchenStatusReady, "chef-1", "req-2"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AdvanceStatus(ctx, id, models.KitchenStatusServed, "chef-1", "req-3"); err != nil {
		t.Fatal(err)
	}

	board, err := svc.Board(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 0 {
		t.Errorf("served orders must leave the active board, got %d entries", len(board))
	}

	if _, err := svc.AdvanceStatus(ctx, id, models.KitchenStatusServed, "chef-1", "req-4"); !errors.Is(err, status.ErrTerminal) {
		t.Errorf("expected ErrTerminal after served, got %v", err)
	}
}
