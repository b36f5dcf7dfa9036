package db

import (
	"context"
	"errors"

	"mesa/pkg/logger"
	"mesa/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrAlreadyCompleted = errors.New("order is already completed")
)

type BillingDB struct {
	dbPool *pgxpool.Pool
	logger *logger.Logger
}

func NewBillingDB(dbPool *pgxpool.Pool, logger *logger.Logger) *BillingDB {
	return &BillingDB{
		dbPool: dbPool,
		logger: logger,
	}
}

func (d *BillingDB) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var o models.Order

	err := d.dbPool.QueryRow(ctx, `
        SELECT id, created_at, updated_at, number, subtotal, tax_amount, total_amount,
               payment_method, status, staff_id, table_session_id, completed_at
        FROM orders
        WHERE number = $1
    `, number).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.Number, &o.Subtotal,
		&o.TaxAmount, &o.TotalAmount, &o.PaymentMethod, &o.Status, &o.StaffID,
		&o.TableSessionID, &o.CompletedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return &o, nil
}

func (d *BillingDB) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := d.dbPool.Query(ctx, `
        SELECT id, order_id, menu_item_id, name, quantity, unit_price, total_price, created_at
        FROM order_items
        WHERE order_id = $1
        ORDER BY id
    `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

func (d *BillingDB) GetTableLabel(ctx context.Context, sessionID int64) (string, error) {
	var tableID string

	err := d.dbPool.QueryRow(ctx, `
        SELECT table_id FROM table_sessions WHERE id = $1
    `, sessionID).Scan(&tableID)
	if err != nil {
		return "", err
	}
	return tableID, nil
}

// CompleteOrder marks the order completed and records the payment method.
// The status guard makes re-billing an already completed order a no-op
// surfaced as ErrAlreadyCompleted.
func (d *BillingDB) CompleteOrder(ctx context.Context, orderID int64, paymentMethod string) error {
	tag, err := d.dbPool.Exec(ctx, `
        UPDATE orders
        SET status = $1, payment_method = $2, completed_at = now(), updated_at = now()
        WHERE id = $3 AND status <> $1
    `, models.OrderStatusCompleted, paymentMethod, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyCompleted
	}
	return nil
}

func (d *BillingDB) LogOrderStatus(ctx context.Context, orderID int64, status, changedBy, notes string) error {
	_, err := d.dbPool.Exec(ctx, `
        INSERT INTO order_status_log (order_id, status, changed_by, notes)
        VALUES ($1, $2, $3, $4)
    `, orderID, status, changedBy, notes)

	return err
}
