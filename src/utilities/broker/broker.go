// Package broker fans out knowledge-refresh events over RabbitMQ so
// every serving instance drops its result cache after an ingest run.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const exchangeName = "cvesearch"

// RefreshMessage announces that the store changed.
type RefreshMessage struct {
	Event  string `json:"event"`
	Source string `json:"source"`
}

// Broker wraps one AMQP connection and channel.
type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials the broker and declares the fanout exchange.
func Connect(url string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Broker{conn: conn, channel: channel}, nil
}

// PublishRefresh broadcasts a refresh event.
func (b *Broker) PublishRefresh(ctx context.Context, source string) error {
	body, err := json.Marshal(RefreshMessage{Event: "knowledge_refresh", Source: source})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = b.channel.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish refresh event: %w", err)
	}
	return nil
}

// SubscribeRefresh consumes refresh events on an exclusive queue and
// invokes the handler for each one. Blocks until the channel closes.
func (b *Broker) SubscribeRefresh(handler func(RefreshMessage)) error {
	queue, err := b.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = b.channel.QueueBind(queue.Name, "", exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := b.channel.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	for delivery := range deliveries {
		var message RefreshMessage
		if err := json.Unmarshal(delivery.Body, &message); err != nil {
			logrus.Warnf("ignoring malformed refresh event: %v", err)
			continue
		}
		handler(message)
	}
	return nil
}

// Close releases the channel and connection.
func (b *Broker) Close() {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
