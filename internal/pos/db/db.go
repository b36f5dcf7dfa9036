package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mesa/internal/pos/cart"
	"mesa/pkg/logger"
	"mesa/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrSessionNotFound  = errors.New("table session not found")
	ErrSessionClosed    = errors.New("table session is closed")
	ErrTableOccupied    = errors.New("table already has an active session")
)

type OrderDB struct {
	dbPool *pgxpool.Pool
	logger *logger.Logger
}

func NewOrderDB(dbPool *pgxpool.Pool, logger *logger.Logger) *OrderDB {
	return &OrderDB{
		dbPool: dbPool,
		logger: logger,
	}
}

func (d *OrderDB) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	var item models.MenuItem

	err := d.dbPool.QueryRow(ctx, `
        SELECT id, created_at, updated_at, name, description, category, price,
               stock_count, low_stock_alert, is_available, preparation_time
        FROM menu_items
        WHERE id = $1
    `, id).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt, &item.Name,
		&item.Description, &item.Category, &item.Price, &item.StockCount,
		&item.LowStockAlert, &item.IsAvailable, &item.PreparationTime)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMenuItemNotFound
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// GenerateOrderNumber produces the next daily sequence number, e.g.
// ORD_20260829_007.
func (d *OrderDB) GenerateOrderNumber(ctx context.Context, prefix string) (string, error) {
	var seq int
	today := time.Now().UTC().Format("20060102")

	err := d.dbPool.QueryRow(ctx, `
        SELECT COALESCE(MAX(SUBSTRING(number FROM '\d+$')::integer), 0) + 1
        FROM orders
        WHERE created_at::date = CURRENT_DATE
    `).Scan(&seq)

	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s_%s_%03d", prefix, today, seq), nil
}

func (d *OrderDB) CreateOrder(ctx context.Context, o *models.Order) (int64, error) {
	var orderID int64

	err := d.dbPool.QueryRow(ctx, `
        INSERT INTO orders (number, subtotal, tax_amount, total_amount,
                            payment_method, status, staff_id, table_session_id)
        VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7)
        RETURNING id
    `, o.Number, o.Subtotal, o.TaxAmount, o.TotalAmount, o.Status,
		o.StaffID, o.TableSessionID).Scan(&orderID)

	if err != nil {
		return 0, err
	}

	return orderID, nil
}

func (d *OrderDB) CreateOrderItems(ctx context.Context, orderID int64, lines []cart.Line) error {
	batch := &pgx.Batch{}

	for _, line := range lines {
		batch.Queue(`
            INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, total_price)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, orderID, line.MenuItemID, line.Name, line.Quantity, line.Price,
			line.Price*float64(line.Quantity))
	}

	br := d.dbPool.SendBatch(ctx, batch)
	defer br.Close()

	for range lines {
		_, err := br.Exec()
		if err != nil {
			return err
		}
	}

	return br.Close()
}

func (d *OrderDB) LogOrderStatus(ctx context.Context, orderID int64, status, changedBy, notes string) error {
	_, err := d.dbPool.Exec(ctx, `
        INSERT INTO order_status_log (order_id, status, changed_by, notes)
        VALUES ($1, $2, $3, $4)
    `, orderID, status, changedBy, notes)

	return err
}

func (d *OrderDB) GetTableSession(ctx context.Context, id int64) (*models.TableSession, error) {
	var s models.TableSession

	err := d.dbPool.QueryRow(ctx, `
        SELECT id, created_at, table_id, customer_name, party_size, status, closed_at
        FROM table_sessions
        WHERE id = $1
    `, id).Scan(&s.ID, &s.CreatedAt, &s.TableID, &s.CustomerName,
		&s.PartySize, &s.Status, &s.ClosedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// OpenTableSession creates an active session for the table. A partial unique
// index on (table_id) WHERE status = 'active' backs the one-active-session
// invariant; a conflicting insert surfaces as ErrTableOccupied.
func (d *OrderDB) OpenTableSession(ctx context.Context, tableID, customerName string, partySize int) (*models.TableSession, error) {
	var s models.TableSession

	err := d.dbPool.QueryRow(ctx, `
        INSERT INTO table_sessions (table_id, customer_name, party_size, status)
        VALUES ($1, $2, $3, 'active')
        ON CONFLICT (table_id) WHERE status = 'active' DO NOTHING
        RETURNING id, created_at, table_id, customer_name, party_size, status, closed_at
    `, tableID, customerName, partySize).Scan(&s.ID, &s.CreatedAt, &s.TableID,
		&s.CustomerName, &s.PartySize, &s.Status, &s.ClosedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTableOccupied
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}
