package infra

import (
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpDialTimeout = 10 * time.Second

// AMQPChannel is an open broker connection with one channel for publishing.
type AMQPChannel struct {
	conn *amqp.Connection
	*amqp.Channel
}

// NewAMQPChannel dials the broker and opens a channel. Dialing is bounded so
// startup does not hang on an unreachable broker.
func NewAMQPChannel(rawURL string) (*AMQPChannel, error) {
	clean, err := SanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(clean, amqp.Config{Dial: amqp.DefaultDial(amqpDialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return &AMQPChannel{conn: conn, Channel: ch}, nil
}

// Close closes the channel and then the connection.
func (c *AMQPChannel) Close() error {
	chErr := c.Channel.Close()
	connErr := c.conn.Close()
	return errors.Join(chErr, connErr)
}

// SanitizeAMQPURL trims quotes and whitespace and checks the scheme.
func SanitizeAMQPURL(raw string) (string, error) {
	return sanitizeURL(raw, "amqp", "amqp", "amqps")
}
