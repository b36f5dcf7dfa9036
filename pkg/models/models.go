package models

import (
	"time"
)

// Order lifecycle. An order is created already "preparing" (it is sent to the
// kitchen as part of submission) and becomes "completed" only through billing.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusCompleted = "completed"
)

// Kitchen order lifecycle, strictly forward-only.
const (
	KitchenStatusPending   = "pending"
	KitchenStatusPreparing = "preparing"
	KitchenStatusReady     = "ready"
	KitchenStatusServed    = "served"
)

const (
	TableSessionActive = "active"
	TableSessionClosed = "closed"
)

type MenuItem struct {
	ID              int64     `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	StockCount      int       `json:"stock_count"`
	LowStockAlert   int       `json:"low_stock_alert"`
	IsAvailable     bool      `json:"is_available"`
	PreparationTime int       `json:"preparation_time"` // minutes
}

// Purchasable reports whether the item can currently be added to a cart.
func (m *MenuItem) Purchasable() bool {
	return m.IsAvailable && m.StockCount > 0
}

type Order struct {
	ID             int64      `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Number         string     `json:"number"`
	Subtotal       float64    `json:"subtotal"`
	TaxAmount      float64    `json:"tax_amount"`
	TotalAmount    float64    `json:"total_amount"`
	PaymentMethod  string     `json:"payment_method"`
	Status         string     `json:"status"`
	StaffID        string     `json:"staff_id"`
	TableSessionID *int64     `json:"table_session_id,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Takeout reports whether the order has no bound table session.
func (o *Order) Takeout() bool {
	return o.TableSessionID == nil
}

type OrderItem struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	MenuItemID int64     `json:"menu_item_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

type KitchenOrder struct {
	ID            int64         `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	OrderID       int64         `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	Status        string        `json:"status"`
	Items         []KitchenItem `json:"items"`
	EstimatedTime int           `json:"estimated_time"` // minutes
}

// KitchenItem is the denormalized per-line view the kitchen board renders.
type KitchenItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type TableSession struct {
	ID           int64      `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	TableID      string     `json:"table_id"`
	CustomerName string     `json:"customer_name"`
	PartySize    int        `json:"party_size"`
	Status       string     `json:"status"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// StockAdjustment is the append-only audit trail of manual stock corrections,
// separate from the automatic deduction applied on completed sales.
type StockAdjustment struct {
	ID         int64     `json:"id"`
	MenuItemID int64     `json:"menu_item_id"`
	Delta      int       `json:"delta"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

type OrderStatusLog struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// --- HTTP API payloads ---

type SubmitOrderRequest struct {
	CartID         string `json:"cart_id" validate:"required"`
	StaffID        string `json:"staff_id" validate:"required"`
	TableSessionID *int64 `json:"table_session_id,omitempty"`
}

type SubmitOrderResponse struct {
	OrderNumber string  `json:"order_number"`
	Status      string  `json:"status"`
	Subtotal    float64 `json:"subtotal"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`
}

type AddCartItemRequest struct {
	MenuItemID int64 `json:"menu_item_id" validate:"required"`
}

type OpenSessionRequest struct {
	CustomerName string `json:"customer_name" validate:"required"`
	PartySize    int    `json:"party_size" validate:"required,min=1"`
}

type BillOrderRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card"`
	StaffID       string `json:"staff_id" validate:"required"`
}

type AdjustStockRequest struct {
	MenuItemID int64  `json:"menu_item_id" validate:"required"`
	Delta      int    `json:"delta" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}

type UpdateKitchenStatusRequest struct {
	NewStatus string `json:"new_status" validate:"required,oneof=pending preparing ready served"`
	ChangedBy string `json:"changed_by" validate:"required"`
}

// --- Broker messages ---

// KitchenOrderMessage is published to the orders topic exchange at submission
// time and consumed by the kitchen worker to create the board projection.
type KitchenOrderMessage struct {
	OrderID     int64         `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	OrderType   string        `json:"order_type"` // dine_in or takeout
	Items       []KitchenItem `json:"items"`
	TotalAmount float64       `json:"total_amount"`
	Priority    int           `json:"priority"`
	// EstimatedTime is the longest preparation time over the order's items,
	// in minutes.
	EstimatedTime int `json:"estimated_time"`
}

// ChangeNotification fans out to every open surface so derived views
// re-fetch current state instead of patching incrementally.
type ChangeNotification struct {
	Table     string    `json:"table"`
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
}

// StockAlertMessage is fanned out when a deduction or adjustment crosses a
// threshold.
type StockAlertMessage struct {
	MenuItemID int64     `json:"menu_item_id"`
	Name       string    `json:"name"`
	StockCount int       `json:"stock_count"`
	Threshold  int       `json:"threshold"`
	Level      string    `json:"level"` // low_stock or out_of_stock
	Timestamp  time.Time `json:"timestamp"`
}

const (
	StockAlertLow = "low_stock"
	StockAlertOut = "out_of_stock"
)

type StatusUpdateMessage struct {
	OrderNumber string    `json:"order_number"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	ChangedBy   string    `json:"changed_by"`
	Timestamp   time.Time `json:"timestamp"`
}
