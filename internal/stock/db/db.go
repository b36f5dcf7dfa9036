package db

import (
	"context"
	"errors"

	"mesa/pkg/logger"
	"mesa/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

type StockDB struct {
	dbPool *pgxpool.Pool
	logger *logger.Logger
}

func NewStockDB(dbPool *pgxpool.Pool, logger *logger.Logger) *StockDB {
	return &StockDB{
		dbPool: dbPool,
		logger: logger,
	}
}

// DecrementStock subtracts qty from the item's stock in a single statement,
// flooring at zero, and returns the item as left by the update. Running the
// read-modify-write inside one UPDATE keeps concurrent decrements from
// pushing the count negative; consistency across separate statements stays
// best-effort.
func (d *StockDB) DecrementStock(ctx context.Context, menuItemID int64, qty int) (*models.MenuItem, error) {
	row := d.dbPool.QueryRow(ctx, `
        UPDATE menu_items
        SET stock_count = GREATEST(stock_count - $1, 0), updated_at = now()
        WHERE id = $2
        RETURNING id, created_at, updated_at, name, description, category, price,
                  stock_count, low_stock_alert, is_available, preparation_time
    `, qty, menuItemID)

	return scanItem(row)
}

// ApplyAdjustment moves the stock by a signed delta, flooring at zero.
func (d *StockDB) ApplyAdjustment(ctx context.Context, menuItemID int64, delta int) (*models.MenuItem, error) {
	row := d.dbPool.QueryRow(ctx, `
        UPDATE menu_items
        SET stock_count = GREATEST(stock_count + $1, 0), updated_at = now()
        WHERE id = $2
        RETURNING id, created_at, updated_at, name, description, category, price,
                  stock_count, low_stock_alert, is_available, preparation_time
    `, delta, menuItemID)

	return scanItem(row)
}

func (d *StockDB) InsertAdjustment(ctx context.Context, a *models.StockAdjustment) (int64, error) {
	var id int64

	err := d.dbPool.QueryRow(ctx, `
        INSERT INTO stock_adjustments (menu_item_id, delta, reason)
        VALUES ($1, $2, $3)
        RETURNING id
    `, a.MenuItemID, a.Delta, a.Reason).Scan(&id)

	if err != nil {
		return 0, err
	}
	return id, nil
}

func scanItem(row pgx.Row) (*models.MenuItem, error) {
	var item models.MenuItem

	err := row.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt, &item.Name,
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
