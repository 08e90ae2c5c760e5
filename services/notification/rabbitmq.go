// File: services/notification/rabbitmq.go
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"broadway/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// OrderPlacedRoutingKey tags order events; the exchange is fanout so consumers bind without it.
	OrderPlacedRoutingKey = "order.placed"
	publishTimeout        = 5 * time.Second
	dialAttempts          = 5
)

// channel is the slice of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitNotifier publishes order events to a durable fanout exchange.
type RabbitNotifier struct {
	mu       sync.Mutex
	url      string
	exchange string
	conn     *amqp.Connection
	ch       channel
	logger   *zap.Logger
}

// NewOrderNotifier dials RabbitMQ when url is set and falls back to a no-op notifier otherwise.
func NewOrderNotifier(url, exchange string, logger *zap.Logger) (OrderNotifier, error) {
	if url == "" {
		logger.Info("RABBITMQ_URL not set; order events will not be published")
		return NoopNotifier{}, nil
	}
	n := &RabbitNotifier{url: url, exchange: exchange, logger: logger}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *RabbitNotifier) connect() error {
	var err error
	for i := 0; i < dialAttempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(n.url)
		if err == nil {
			var ch *amqp.Channel
			ch, err = conn.Channel()
			if err == nil {
				if err = declareExchange(ch, n.exchange); err == nil {
					n.conn, n.ch = conn, ch
					return nil
				}
				ch.Close()
			}
			conn.Close()
		}
		if i < dialAttempts-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			n.logger.Warn("RabbitMQ connection failed, retrying", zap.Duration("in", wait), zap.Error(err))
			time.Sleep(wait)
		}
	}
	return fmt.Errorf("connect to RabbitMQ after %d attempts: %w", dialAttempts, err)
}

func declareExchange(ch channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// PublishOrderPlaced sends a persistent JSON message for a committed order.
func (n *RabbitNotifier) PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil && n.conn.IsClosed() {
		if err := n.connect(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = n.ch.PublishWithContext(ctx, n.exchange, OrderPlacedRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         OrderPlacedRoutingKey,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order %d: %w", event.OrderID, err)
	}
	n.logger.Debug("published order event", zap.Int64("order", event.OrderID), zap.String("exchange", n.exchange))
	return nil
}

func (n *RabbitNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
