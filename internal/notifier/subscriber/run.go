package subscriber

import (
	"context"
	"fmt"

	"mesa/internal/notifier"
	"mesa/pkg/config"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"
)

// Run starts the notification subscriber mode: it consumes the notifications
// queue and logs a refresh cue per affected surface, standing in for the UI
// clients that would re-fetch their views on each change.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	rmq, err := rabbitmq.ConnectRabbitMQ(&cfg.RabbitMQ, log)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer rmq.Close()

	n := notifier.NewNotifier()
	for _, table := range []string{"orders", "kitchen_orders", "menu_items", "stock_adjustments"} {
		n.Subscribe(table, func(change models.ChangeNotification) {
			log.Info("dispatch", "view_refresh",
				fmt.Sprintf("%s view refresh triggered by %s", table, change.Kind))
		})
	}

	return NewSubscriber(rabbitmq.NotificationsQueue, rmq, n, log).Run(ctx)
}
