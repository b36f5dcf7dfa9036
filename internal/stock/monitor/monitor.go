package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	menuservice "mesa/internal/menu/service"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"
)

// Monitor watches stock alerts and keeps an operator-facing log of threshold
// crossings. On startup it reports the current low- and out-of-stock sets so
// the picture is complete without waiting for the next alert.
type Monitor struct {
	catalog  *menuservice.CatalogService
	rabbitMQ *rabbitmq.RabbitMQ
	logger   *logger.Logger
}

func NewMonitor(catalog *menuservice.CatalogService, rmq *rabbitmq.RabbitMQ, log *logger.Logger) *Monitor {
	return &Monitor{
		catalog:  catalog,
		rabbitMQ: rmq,
		logger:   log,
	}
}

func (m *Monitor) Run(ctx context.Context) error {
	m.reportSnapshot(ctx)

	messages, err := m.rabbitMQ.Channel.Consume(
		rabbitmq.StockAlertsQueue, // queue
		"stock-monitor",           // consumer
		true,                      // auto-ack
		false,                     // exclusive
		false,                     // no-local
		false,                     // no-wait
		nil,                       // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming stock alerts: %w", err)
	}

	m.logger.Info("startup", "consuming_started", "Started consuming stock alerts")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			requestID := fmt.Sprintf("msg-%d", time.Now().UnixNano())
			var alert models.StockAlertMessage
			if err := json.Unmarshal(msg.Body, &alert); err != nil || alert.Level == "" {
				// The fanout also carries change notifications and status
				// updates; only alerts are interesting here.
				continue
			}

			m.logger.Warn(requestID, "stock_alert",
				fmt.Sprintf("%s: %d left (threshold %d, %s)",
					alert.Name, alert.StockCount, alert.Threshold, alert.Level))
		}
	}
}

func (m *Monitor) reportSnapshot(ctx context.Context) {
	low, err := m.catalog.LowStockItems(ctx)
	if err != nil {
		m.logger.Error("startup", "snapshot_failed", "Failed to load low-stock snapshot", err)
		return
	}
	for _, item := range low {
		m.logger.Warn("startup", "low_stock",
			fmt.Sprintf("%s: %d left (threshold %d)", item.Name, item.StockCount, item.LowStockAlert))
	}

	out, err := m.catalog.OutOfStockItems(ctx)
	if err != nil {
		m.logger.Error("startup", "snapshot_failed", "Failed to load out-of-stock snapshot", err)
		return
	}
	for _, item := range out {
		m.logger.Warn("startup", "out_of_stock", fmt.Sprintf("%s is out of stock", item.Name))
	}
}
