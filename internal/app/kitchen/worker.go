// Package kitchen runs the kitchen-service: it consumes accepted orders from
// the kitchen queue, maintains their lifecycle and serves the dashboard API.
package kitchen

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"pizzeria-system/internal/connections/rabbitmq"
	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/kitchen"
)

type Worker struct {
	mq       *rabbitmq.Client
	queue    *kitchen.Queue
	log      *slog.Logger
	name     string
	prefetch int
}

func NewWorker(mq *rabbitmq.Client, queue *kitchen.Queue, log *slog.Logger, name string, prefetch int) *Worker {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Worker{mq: mq, queue: queue, log: log, name: name, prefetch: prefetch}
}

// Consume reads order messages until ctx is cancelled. Messages that cannot
// be decoded are rejected to the dead-letter queue; accept failures are
// requeued so a transient store outage does not lose orders.
func (w *Worker) Consume(ctx context.Context) error {
	deliveries, err := w.mq.Consume(rabbitmq.KitchenQueue, w.name, w.prefetch)
	if err != nil {
		return err
	}
	w.log.Info("worker_started", "worker", w.name, "queue", rabbitmq.KitchenQueue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg domain.OrderMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.log.Error("order_decode_failed", "error", err.Error())
		_ = d.Nack(false, false) // dead-letter, the payload will never parse
		return
	}
	if err := w.queue.Accept(ctx, msg); err != nil {
		w.log.Error("order_accept_failed", "order", msg.OrderNumber, "error", err.Error())
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// RunPurge drops expired completed orders on a fixed cadence.
func RunPurge(ctx context.Context, queue *kitchen.Queue, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := queue.Purge(ctx); err != nil {
				// queue logs the detail; nothing more to do here
				continue
			}
		}
	}
}
