package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mesa/internal/kitchen/service"
	"mesa/pkg/logger"
	"mesa/pkg/models"
	"mesa/pkg/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Worker consumes submitted orders from the kitchen queue and creates the
// board projection for each.
type Worker struct {
	name     string
	prefetch int
	service  *service.KitchenService
	rabbitMQ *rabbitmq.RabbitMQ
	logger   *logger.Logger
}

func NewWorker(name string, prefetch int, svc *service.KitchenService, rmq *rabbitmq.RabbitMQ, log *logger.Logger) *Worker {
	return &Worker{
		name:     name,
		prefetch: prefetch,
		service:  svc,
		rabbitMQ: rmq,
		logger:   log,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	if err := w.rabbitMQ.Channel.Qos(w.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	messages, err := w.rabbitMQ.Channel.Consume(
		rabbitmq.KitchenQueue, // queue
		w.name,                // consumer
		false,                 // auto-ack
		false,                 // exclusive
		false,                 // no-local
		false,                 // no-wait
		nil,                   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	w.logger.Info("startup", "consuming_started", "Started consuming messages from kitchen_queue")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			w.processMessage(ctx, msg)
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, msg amqp.Delivery) {
	requestID := fmt.Sprintf("msg-%d", time.Now().UnixNano())

	var orderMsg models.KitchenOrderMessage
	if err := json.Unmarshal(msg.Body, &orderMsg); err != nil {
		w.logger.Error(requestID, "message_parsing_failed", "Failed to parse kitchen order message", err)
		// Unparseable payloads are dropped, requeueing would loop forever.
		if err2 := msg.Nack(false, false); err2 != nil {
			w.logger.Error(requestID, "nack_failed", "Failed to Nack unparseable message", err2)
		}
		return
	}

	w.logger.Debug(requestID, "order_received",
		fmt.Sprintf("Projecting order %s onto the kitchen board", orderMsg.OrderNumber))

	if _, err := w.service.ProjectOrder(ctx, &orderMsg, requestID); err != nil {
		w.logger.Error(requestID, "projection_failed",
			fmt.Sprintf("Failed to project order %s", orderMsg.OrderNumber), err)
		if err2 := msg.Nack(false, true); err2 != nil {
			w.logger.Error(requestID, "nack_failed", "Failed to Nack message after projection error", err2)
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		w.logger.Error(requestID, "ack_failed", "Failed to Ack processed message", err)
		return
	}
	w.logger.Debug(requestID, "order_projected",
		fmt.Sprintf("Order %s is on the kitchen board", orderMsg.OrderNumber))
}
