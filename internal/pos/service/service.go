package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mesa/internal/pos/cart"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrMissingStaff   = errors.New("staff_id is required")
	ErrInactiveTable  = errors.New("table session is not active")
	ErrUnknownSession = errors.New("unknown table session")
)

// orderStore is the slice of the POS database layer the service needs.
type orderStore interface {
	GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error)
	GenerateOrderNumber(ctx context.Context, prefix string) (string, error)
	CreateOrder(ctx context.Context, o *models.Order) (int64, error)
	CreateOrderItems(ctx context.Context, orderID int64, lines []cart.Line) error
	LogOrderStatus(ctx context.Context, orderID int64, status, changedBy, notes string) error
	GetTableSession(ctx context.Context, id int64) (*models.TableSession, error)
	OpenTableSession(ctx context.Context, tableID, customerName string, partySize int) (*models.TableSession, error)
}

type publisher interface {
	PublishMessage(exchange, routingKey string, message []byte, priority uint8) error
}

type OrderService struct {
	store     orderStore
	publisher publisher
	carts     *cart.Store
	taxRate   float64
	numPrefix string
	logger    *logger.Logger
}

func NewOrderService(store orderStore, pub publisher, carts *cart.Store, taxRate float64, numPrefix string, logger *logger.Logger) *OrderService {
	return &OrderService{
		store:     store,
		publisher: pub,
		carts:     carts,
		taxRate:   taxRate,
		numPrefix: numPrefix,
		logger:    logger,
	}
}

// AddToCart fetches the live menu item and merges it into the session cart.
// The stock check is best-effort: it caps the line at the stock count seen at
// add-time, nothing reserves the stock.
func (s *OrderService) AddToCart(ctx context.Context, cartID string, menuItemID int64) (*cart.Cart, error) {
	item, err := s.store.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}

	c := s.carts.Get(cartID)
	if err := c.AddItem(item); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *OrderService) Cart(cartID string) *cart.Cart {
	return s.carts.Get(cartID)
}

// NewOrder is the explicit "new order" action: it discards the session cart.
// Submission alone never clears the cart.
func (s *OrderService) NewOrder(cartID string) {
	s.carts.Drop(cartID)
}

func (s *OrderService) OpenTableSession(ctx context.Context, tableID string, req *models.OpenSessionRequest) (*models.TableSession, error) {
	return s.store.OpenTableSession(ctx, tableID, req.CustomerName, req.PartySize)
}

// SubmitOrder converts the session cart into a persisted order plus line
// items and hands the order to the kitchen. A failure publishing to the
// kitchen queue is logged and surfaced through the response status, but the
// already-created order is not rolled back.
func (s *OrderService) SubmitOrder(ctx context.Context, req *models.SubmitOrderRequest, requestID string) (*models.SubmitOrderResponse, error) {
	if req.StaffID == "" {
		return nil, ErrMissingStaff
	}

	c := s.carts.Get(req.CartID)
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	orderType := "takeout"
	if req.TableSessionID != nil {
		session, err := s.store.GetTableSession(ctx, *req.TableSessionID)
		if err != nil {
			return nil, ErrUnknownSession
		}
		if session.Status != models.TableSessionActive {
			return nil, ErrInactiveTable
		}
		orderType = "dine_in"
	}

	subtotal := c.TotalAmount()
	tax := subtotal * s.taxRate
	total := subtotal + tax

	orderNumber, err := s.store.GenerateOrderNumber(ctx, s.numPrefix)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		Number:         orderNumber,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		TotalAmount:    total,
		Status:         models.OrderStatusPreparing,
		StaffID:        req.StaffID,
		TableSessionID: req.TableSessionID,
	}

	orderID, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	lines := c.Lines()
	if err := s.store.CreateOrderItems(ctx, orderID, lines); err != nil {
		return nil, err
	}

	if err := s.store.LogOrderStatus(ctx, orderID, models.OrderStatusPreparing, "pos-service", "Order submitted to kitchen"); err != nil {
		return nil, err
	}

	// Secondary steps are log-and-continue: the order exists at this point
	// and is never rolled back.
	if err := s.publishKitchenOrder(ctx, orderID, orderNumber, orderType, total, lines); err != nil {
		s.logger.Error(requestID, "kitchen_publish_failed",
			fmt.Sprintf("Order %s created but not delivered to kitchen", orderNumber), err)
	}
	s.notifyChange(requestID, "orders", "created", orderNumber)

	return &models.SubmitOrderResponse{
		OrderNumber: orderNumber,
		Status:      models.OrderStatusPreparing,
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: total,
	}, nil
}

func (s *OrderService) publishKitchenOrder(ctx context.Context, orderID int64, orderNumber, orderType string, total float64, lines []cart.Line) error {
	items := make([]models.KitchenItem, 0, len(lines))
	estimated := 0
	for _, line := range lines {
		items = append(items, models.KitchenItem{Name: line.Name, Quantity: line.Quantity})

		item, err := s.store.GetMenuItem(ctx, line.MenuItemID)
		if err == nil && item.PreparationTime > estimated {
			estimated = item.PreparationTime
		}
	}

	priority := 1
	if total > 100 {
		priority = 10
	} else if total >= 50 {
		priority = 5
	}

	msg := models.KitchenOrderMessage{
		OrderID:       orderID,
		OrderNumber:   orderNumber,
		OrderType:     orderType,
		Items:         items,
		TotalAmount:   total,
		Priority:      priority,
		EstimatedTime: estimated,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	routingKey := fmt.Sprintf("kitchen.%s", orderType)
	return s.publisher.PublishMessage(rabbitmq.OrdersExchange, routingKey, body, uint8(priority))
}

func (s *OrderService) notifyChange(requestID, table, kind, key string) {
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
