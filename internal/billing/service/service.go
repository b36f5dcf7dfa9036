package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	billingdb "mesa/internal/billing/db"
	"mesa/internal/billing/receipt"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"
)

var (
	ErrNotReady      = errors.New("kitchen order is not ready for billing")
	ErrReceiptFailed = errors.New("receipt generation failed")
)

type billingStore interface {
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetTableLabel(ctx context.Context, sessionID int64) (string, error)
	CompleteOrder(ctx context.Context, orderID int64, paymentMethod string) error
	LogOrderStatus(ctx context.Context, orderID int64, status, changedBy, notes string) error
}

type kitchenGateway interface {
	GetKitchenOrderByOrderNumber(ctx context.Context, orderNumber string) (*models.KitchenOrder, error)
	UpdateStatus(ctx context.Context, id int64, oldStatus, newStatus string) error
}

type stockDeductor interface {
	ApplyOrderDeduction(ctx context.Context, items []models.OrderItem, requestID string) error
}

type publisher interface {
	PublishMessage(exchange, routingKey string, message []byte, priority uint8) error
}

// Finalizer closes out an order once its kitchen counterpart is ready:
// it marks the order completed, renders the receipt, releases the kitchen
// board entry, and applies the stock deduction as a best-effort follow-up.
type Finalizer struct {
	store     billingStore
	kitchen   kitchenGateway
	stock     stockDeductor
	renderer  receipt.Renderer
	printer   receipt.Printer
	publisher publisher
	logger    *logger.Logger
}

func NewFinalizer(store billingStore, kitchen kitchenGateway, stock stockDeductor,
	renderer receipt.Renderer, printer receipt.Printer, pub publisher, logger *logger.Logger) *Finalizer {
	return &Finalizer{
		store:     store,
		kitchen:   kitchen,
		stock:     stock,
		renderer:  renderer,
		printer:   printer,
		publisher: pub,
		logger:    logger,
	}
}

// Finalize bills the order identified by orderNumber. Any failure before the
// order is marked completed aborts the operation and leaves the kitchen
// order at ready, so the operator can retry by invoking it again. Failures
// after that point follow the log-and-continue policy.
func (f *Finalizer) Finalize(ctx context.Context, orderNumber string, req *models.BillOrderRequest, requestID string) (*receipt.Receipt, error) {
	ko, err := f.kitchen.GetKitchenOrderByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if ko.Status != models.KitchenStatusReady {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReady, ko.Status)
	}

	order, err := f.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	items, err := f.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	// A retry after a downstream failure finds the order already completed;
	// carry on so the receipt, board release and deduction still happen.
	if err := f.store.CompleteOrder(ctx, order.ID, req.PaymentMethod); err != nil {
		if !errors.Is(err, billingdb.ErrAlreadyCompleted) {
			return nil, err
		}
		f.logger.Debug(requestID, "order_already_completed",
			fmt.Sprintf("Order %s was already completed, resuming finalization", orderNumber))
	}
	if err := f.store.LogOrderStatus(ctx, order.ID, models.OrderStatusCompleted,
		req.StaffID, "Order billed"); err != nil {
		f.logger.Error(requestID, "status_log_failed",
			fmt.Sprintf("Completion of %s not recorded in audit log", orderNumber), err)
	}

	tableLabel := "takeout"
	if order.TableSessionID != nil {
		if label, err := f.store.GetTableLabel(ctx, *order.TableSessionID); err == nil {
			tableLabel = label
		}
	}

	payload := f.buildPayload(order, items, req, tableLabel)
	rec := f.renderer.Generate(payload)
	if rec == nil {
		// The order stays completed; only the receipt is missing.
		return nil, ErrReceiptFailed
	}
	if ok := f.printer.Print(rec); !ok {
		f.logger.Warn(requestID, "receipt_print_failed",
			fmt.Sprintf("Receipt for %s generated but not printed", orderNumber))
	}

	// Release the order from the kitchen board.
	if err := f.kitchen.UpdateStatus(ctx, ko.ID, models.KitchenStatusReady, models.KitchenStatusServed); err != nil {
		f.logger.Error(requestID, "kitchen_release_failed",
			fmt.Sprintf("Order %s billed but still on the kitchen board", orderNumber), err)
	}

	// Best-effort stock deduction; billing is never undone by its failure.
	if err := f.stock.ApplyOrderDeduction(ctx, items, requestID); err != nil {
		f.logger.Error(requestID, "stock_deduction_failed",
			fmt.Sprintf("Stock not fully deducted for order %s", orderNumber), err)
	}

	f.notifyChange(requestID, "orders", "completed", orderNumber)
	f.notifyChange(requestID, "kitchen_orders", "released", orderNumber)

	return rec, nil
}

func (f *Finalizer) buildPayload(order *models.Order, items []models.OrderItem, req *models.BillOrderRequest, tableLabel string) *receipt.Payload {
	lines := make([]receipt.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, receipt.Line{
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}

	return &receipt.Payload{
		OrderNumber:   order.Number,
		Lines:         lines,
		Subtotal:      order.Subtotal,
		TaxAmount:     order.TaxAmount,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: req.PaymentMethod,
		StaffID:       order.StaffID,
		TableLabel:    tableLabel,
		IssuedAt:      time.Now().UTC(),
	}
}

func (f *Finalizer) notifyChange(requestID, table, kind, key string) {
	n := models.ChangeNotification{
		Table:     table,
		Kind:      kind,
		Key:       key,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(n)
	if err == nil {
		err = f.publisher.PublishMessage(rabbitmq.NotificationsExchange, "", body, 0)
	}
	if err != nil {
		f.logger.Error(requestID, "notify_failed",
			fmt.Sprintf("Change notification for %s not published", table), err)
	}
}
