package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp.Channel the AMQP notifier needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes notifications as JSON to a durable topic exchange.
// Downstream consumers (SMS gateway, push service) pick them up by routing
// key notify.<kind>.
type AMQPNotifier struct {
	ch       Channel
	exchange string
}

// NewAMQPNotifier declares exchange on ch and returns a notifier publishing to
// it.
func NewAMQPNotifier(ch Channel, exchange string) (*AMQPNotifier, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{ch: ch, exchange: exchange}, nil
}

// RoutingKey returns the routing key used for a message kind.
func RoutingKey(kind string) string {
	return "notify." + kind
}

func (n *AMQPNotifier) Send(ctx context.Context, message Message) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	pub := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   message.ID,
		Timestamp:   time.Now().UTC(),
		Body:        body,
	}
	if message.TimeoutHint > 0 {
		pub.Headers = amqp.Table{"timeout_hint_ms": message.TimeoutHint.Milliseconds()}
	}
	if err := n.ch.PublishWithContext(ctx, n.exchange, RoutingKey(message.Kind), false, false, pub); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
