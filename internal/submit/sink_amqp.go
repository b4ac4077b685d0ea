package submit

import (
	"context"
	"encoding/json"
	"fmt"

	"pizzeria-system/internal/connections/rabbitmq"
	"pizzeria-system/internal/domain"
)

// AMQPSink publishes accepted orders to the orders exchange with publisher
// confirms; an unconfirmed publish counts as a failed attempt.
type AMQPSink struct {
	mq *rabbitmq.Client
}

func NewAMQPSink(mq *rabbitmq.Client) *AMQPSink { return &AMQPSink{mq: mq} }

func (s *AMQPSink) Attempt(ctx context.Context, rec domain.OrderRecord) error {
	msg := domain.NewOrderMessage(rec)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", rec.Number, err)
	}
	key := fmt.Sprintf("kitchen.%s.%s", msg.OrderType, rec.Context)
	return s.mq.Publish(ctx, rabbitmq.OrdersExchange, key, uint8(msg.Priority), body)
}
