package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mesa/internal/notifier"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"
)

// Subscriber consumes the notifications fanout queue and hands each change
// to the in-process notifier for dispatch.
type Subscriber struct {
	queue    string
	rabbitMQ *rabbitmq.RabbitMQ
	notifier *notifier.Notifier
	logger   *logger.Logger
}

func NewSubscriber(queue string, rmq *rabbitmq.RabbitMQ, n *notifier.Notifier, log *logger.Logger) *Subscriber {
	return &Subscriber{
		queue:    queue,
		rabbitMQ: rmq,
		notifier: n,
		logger:   log,
	}
}

func (s *Subscriber) Run(ctx context.Context) error {
	messages, err := s.rabbitMQ.Channel.Consume(
		s.queue, // queue
		"",      // consumer
		true,    // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming notifications: %w", err)
	}

	s.logger.Info("startup", "consuming_started",
		fmt.Sprintf("Started consuming messages from %s", s.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			requestID := fmt.Sprintf("msg-%d", time.Now().UnixNano())
			var n models.ChangeNotification
			if err := json.Unmarshal(msg.Body, &n); err != nil || n.Table == "" {
				// Status updates and stock alerts share the fanout exchange;
				// anything that is not a change notification is skipped here.
				continue
			}
			s.notifier.Dispatch(n)
			s.logger.Debug(requestID, "notification_dispatched",
				fmt.Sprintf("Dispatched %s change for %s", n.Kind, n.Table))
		}
	}
}
