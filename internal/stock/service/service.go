package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"
)

type stockStore interface {
	DecrementStock(ctx context.Context, menuItemID int64, qty int) (*models.MenuItem, error)
	ApplyAdjustment(ctx context.Context, menuItemID int64, delta int) (*models.MenuItem, error)
	InsertAdjustment(ctx context.Context, a *models.StockAdjustment) (int64, error)
}

type publisher interface {
	PublishMessage(exchange, routingKey string, message []byte, priority uint8) error
}

// Updater keeps menu-item stock counts consistent with completed sales and
// manual corrections, raising threshold alerts as counts cross them.
type Updater struct {
	store     stockStore
	publisher publisher
	logger    *logger.Logger
}

func NewUpdater(store stockStore, pub publisher, logger *logger.Logger) *Updater {
	return &Updater{
		store:     store,
		publisher: pub,
		logger:    logger,
	}
}

// ApplyOrderDeduction decrements stock for every line of a finalized order.
// Lines are processed independently; one failing line does not stop the
// rest, and the joined error reports everything that went wrong.
func (u *Updater) ApplyOrderDeduction(ctx context.Context, items []models.OrderItem, requestID string) error {
	var errs []error
	for _, it := range items {
		item, err := u.store.DecrementStock(ctx, it.MenuItemID, it.Quantity)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", it.MenuItemID, err))
			continue
		}
		u.raiseAlerts(requestID, item)
	}

	u.notifyChange(requestID, "menu_items", "stock_deducted")
	return errors.Join(errs...)
}

// Adjust records a manual stock correction in the audit trail and applies it.
func (u *Updater) Adjust(ctx context.Context, req *models.AdjustStockRequest, requestID string) (*models.MenuItem, error) {
	adjustment := &models.StockAdjustment{
		MenuItemID: req.MenuItemID,
		Delta:      req.Delta,
		Reason:     req.Reason,
	}
	if _, err := u.store.InsertAdjustment(ctx, adjustment); err != nil {
		return nil, err
	}

	item, err := u.store.ApplyAdjustment(ctx, req.MenuItemID, req.Delta)
	if err != nil {
		return nil, err
	}

	u.raiseAlerts(requestID, item)
	u.notifyChange(requestID, "stock_adjustments", "adjusted")
	u.notifyChange(requestID, "menu_items", "stock_adjusted")
	return item, nil
}

func (u *Updater) raiseAlerts(requestID string, item *models.MenuItem) {
	var level string
	switch {
	case item.StockCount <= 0:
		level = models.StockAlertOut
	case item.StockCount <= item.LowStockAlert:
		level = models.StockAlertLow
	default:
		return
	}

	u.logger.Warn(requestID, "stock_threshold_crossed",
		fmt.Sprintf("%s: %d left (threshold %d, %s)", item.Name, item.StockCount, item.LowStockAlert, level))

	alert := models.StockAlertMessage{
		MenuItemID: item.ID,
		Name:       item.Name,
		StockCount: item.StockCount,
		Threshold:  item.LowStockAlert,
		Level:      level,
		Timestamp:  time.Now().UTC(),
	}
	body, err := json.Marshal(alert)
	if err == nil {
		err = u.publisher.PublishMessage(rabbitmq.NotificationsExchange, "", body, 0)
	}
	if err != nil {
		u.logger.Error(requestID, "alert_publish_failed",
			fmt.Sprintf("Stock alert for %s not published", item.Name), err)
	}
}

func (u *Updater) notifyChange(requestID, table, kind string) {
	n := models.ChangeNotification{
		Table:     table,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(n)
	if err == nil {
		err = u.publisher.PublishMessage(rabbitmq.NotificationsExchange, "", body, 0)
	}
	if err != nil {
		u.logger.Error(requestID, "notify_failed",
			fmt.Sprintf("Change notification for %s not published", table), err)
	}
}
