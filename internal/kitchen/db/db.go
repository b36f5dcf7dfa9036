package db

import (
	"context"
	"encoding/json"
	"errors"

	"mesa/pkg/logger"
	"mesa/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrKitchenOrderNotFound = errors.New("kitchen order not found")
	ErrStatusConflict       = errors.New("kitchen order status changed concurrently")
)

type KitchenDB struct {
	dbPool *pgxpool.Pool
	logger *logger.Logger
}

func NewKitchenDB(dbPool *pgxpool.Pool, logger *logger.Logger) *KitchenDB {
	return &KitchenDB{
		dbPool: dbPool,
		logger: logger,
	}
}

// CreateKitchenOrder persists the board projection of a submitted order.
// Orders arrive at the kitchen already past "pending".
func (d *KitchenDB) CreateKitchenOrder(ctx context.Context, msg *models.KitchenOrderMessage) (int64, error) {
	items, err := json.Marshal(msg.Items)
	if err != nil {
		return 0, err
	}

	var id int64
	err = d.dbPool.QueryRow(ctx, `
        INSERT INTO kitchen_orders (order_id, order_number, status, items, estimated_time)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, msg.OrderID, msg.OrderNumber, models.KitchenStatusPreparing, items,
		msg.EstimatedTime).Scan(&id)

	if err != nil {
		return 0, err
	}
	return id, nil
}

func (d *KitchenDB) GetKitchenOrder(ctx context.Context, id int64) (*models.KitchenOrder, error) {
	return d.scanOne(d.dbPool.QueryRow(ctx, `
        SELECT id, created_at, updated_at, order_id, order_number, status, items, estimated_time
        FROM kitchen_orders
        WHERE id = $1
    `, id))
}

func (d *KitchenDB) GetKitchenOrderByOrderNumber(ctx context.Context, orderNumber string) (*models.KitchenOrder, error) {
	return d.scanOne(d.dbPool.QueryRow(ctx, `
        SELECT id, created_at, updated_at, order_id, order_number, status, items, estimated_time
        FROM kitchen_orders
        WHERE order_number = $1
    `, orderNumber))
}

func (d *KitchenDB) scanOne(row pgx.Row) (*models.KitchenOrder, error) {
	var ko models.KitchenOrder
	var items []byte

	err := row.Scan(&ko.ID, &ko.CreatedAt, &ko.UpdatedAt, &ko.OrderID,
		&ko.OrderNumber, &ko.Status, &items, &ko.EstimatedTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKitchenOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &ko.Items); err != nil {
		return nil, err
	}
	return &ko, nil
}

// ListActive returns the kitchen board: every order not yet served, oldest
// first.
func (d *KitchenDB) ListActive(ctx context.Context) ([]models.KitchenOrder, error) {
	rows, err := d.dbPool.Query(ctx, `
        SELECT id, created_at, updated_at, order_id, order_number, status, items, estimated_time
        FROM kitchen_orders
        WHERE status <> $1
        ORDER BY created_at
    `, models.KitchenStatusServed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.KitchenOrder
	for rows.Next() {
		var ko models.KitchenOrder
		var items []byte
		err := rows.Scan(&ko.ID, &ko.CreatedAt, &ko.UpdatedAt, &ko.OrderID,
			&ko.OrderNumber, &ko.Status, &items, &ko.EstimatedTime)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &ko.Items); err != nil {
			return nil, err
		}
		orders = append(orders, ko)
	}

	return orders, rows.Err()
}

// UpdateStatus persists a transition guarded by the previously observed
// status, so a concurrent advance is detected instead of overwritten.
func (d *KitchenDB) UpdateStatus(ctx context.Context, id int64, oldStatus, newStatus string) error {
	tag, err := d.dbPool.Exec(ctx, `
        UPDATE kitchen_orders
        SET status = $1, updated_at = now()
        WHERE id = $2 AND status = $3
    `, newStatus, id, oldStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (d *KitchenDB) LogOrderStatus(ctx context.Context, orderID int64, status, changedBy, notes string) error {
	_, err := d.dbPool.Exec(ctx, `
        INSERT INTO order_status_log (order_id, status, changed_by, notes)
        VALUES ($1, $2, $3, $4)
    `, orderID, status, changedBy, notes)

	return err
}
