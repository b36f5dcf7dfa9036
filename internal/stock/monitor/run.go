package monitor

import (
	"context"
	"fmt"

	menudb "mesa/internal/menu/db"
	menuservice "mesa/internal/menu/service"
	"mesa/pkg/config"
	"mesa/pkg/db"
	"mesa/pkg/logger"
	"mesa/pkg/rabbitmq"
)

// Run starts the stock monitor mode.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	dbPool, err := db.ConnectDB(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbPool.Close()

	rmq, err := rabbitmq.ConnectRabbitMQ(&cfg.RabbitMQ, log)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer rmq.Close()

	catalog := menuservice.NewCatalogService(menudb.NewMenuDB(dbPool, log), log)
	return NewMonitor(catalog, rmq, log).Run(ctx)
}
