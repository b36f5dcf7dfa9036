package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mesa/internal/kitchen/status"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"
)

type kitchenStore interface {
	CreateKitchenOrder(ctx context.Context, msg *models.KitchenOrderMessage) (int64, error)
	GetKitchenOrder(ctx context.Context, id int64) (*models.KitchenOrder, error)
	ListActive(ctx context.Context) ([]models.KitchenOrder, error)
	UpdateStatus(ctx context.Context, id int64, oldStatus, newStatus string) error
	LogOrderStatus(ctx context.Context, orderID int64, status, changedBy, notes string) error
}

type publisher interface {
	PublishMessage(exchange, routingKey string, message []byte, priority uint8) error
}

// KitchenService maintains the kitchen order projection and its forward-only
// status lifecycle.
type KitchenService struct {
	store     kitchenStore
	publisher publisher
	logger    *logger.Logger
}

func NewKitchenService(store kitchenStore, pub publisher, logger *logger.Logger) *KitchenService {
	return &KitchenService{
		store:     store,
		publisher: pub,
		logger:    logger,
	}
}

// ProjectOrder creates the board record for a submitted order.
func (s *KitchenService) ProjectOrder(ctx context.Context, msg *models.KitchenOrderMessage, requestID string) (int64, error) {
	id, err := s.store.CreateKitchenOrder(ctx, msg)
	if err != nil {
		return 0, err
	}

	if err := s.store.LogOrderStatus(ctx, msg.OrderID, models.KitchenStatusPreparing,
		"kitchen-worker", "Kitchen order created"); err != nil {
		return 0, err
	}

	s.notifyChange(requestID, "kitchen_orders", "created", msg.OrderNumber)
	return id, nil
}

func (s *KitchenService) Board(ctx context.Context) ([]models.KitchenOrder, error) {
	return s.store.ListActive(ctx)
}

// AdvanceStatus moves a kitchen order to newStatus after validating that the
// transition only goes forward. The persisted update is guarded by the
// observed status, so concurrent advances fail instead of regressing.
func (s *KitchenService) AdvanceStatus(ctx context.Context, id int64, newStatus, changedBy, requestID string) (*models.KitchenOrder, error) {
	ko, err := s.store.GetKitchenOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := status.Validate(ko.Status, newStatus); err != nil {
		return nil, err
	}

	if err := s.store.UpdateStatus(ctx, id, ko.Status, newStatus); err != nil {
		return nil, err
	}

	if err := s.store.LogOrderStatus(ctx, ko.OrderID, newStatus, changedBy,
		fmt.Sprintf("Kitchen status %s -> %s", ko.Status, newStatus)); err != nil {
		s.logger.Error(requestID, "status_log_failed",
			fmt.Sprintf("Status transition for %s not recorded in audit log", ko.OrderNumber), err)
	}

	update := models.StatusUpdateMessage{
		OrderNumber: ko.OrderNumber,
		OldStatus:   ko.Status,
		NewStatus:   newStatus,
		ChangedBy:   changedBy,
		Timestamp:   time.Now().UTC(),
	}
	if body, err := json.Marshal(update); err == nil {
		if err := s.publisher.PublishMessage(rabbitmq.NotificationsExchange, "", body, 0); err != nil {
			s.logger.Error(requestID, "status_publish_failed",
				fmt.Sprintf("Status update for %s not published", ko.OrderNumber), err)
		}
	}
	s.notifyChange(requestID, "kitchen_orders", "status_changed", ko.OrderNumber)

	ko.Status = newStatus
	return ko, nil
}

func (s *KitchenService) notifyChange(requestID, table, kind, key string) {
	n := models.ChangeNotification{
		Table:     table,
		Kind:      kind,
		Key:       key,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(n)
	if err == nil {
		err = s.publisher.PublishMessage(rabbitmq.NotificationsExchange, "", body, 0)
	}
	if err != nil {
		s.logger.Error(requestID, "notify_failed",
			fmt.Sprintf("Change notification for %s not published", table), err)
	}
}
