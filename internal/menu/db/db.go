package db

import (
	"context"

	"mesa/pkg/logger"
	"mesa/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MenuDB struct {
	dbPool *pgxpool.Pool
	logger *logger.Logger
}

func NewMenuDB(dbPool *pgxpool.Pool, logger *logger.Logger) *MenuDB {
	return &MenuDB{
		dbPool: dbPool,
		logger: logger,
	}
}

func (d *MenuDB) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := d.dbPool.Query(ctx, `
        SELECT id, created_at, updated_at, name, description, category, price,
               stock_count, low_stock_alert, is_available, preparation_time
        FROM menu_items
        ORDER BY category, name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var item models.MenuItem
		err := rows.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt, &item.Name,
			&item.Description, &item.Category, &item.Price, &item.StockCount,
			&item.LowStockAlert, &item.IsAvailable, &item.PreparationTime)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
