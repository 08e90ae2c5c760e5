package notification

import (
	"context"

	"broadway/models"
)

// OrderNotifier announces placed orders to downstream consumers (kitchen, delivery).
type OrderNotifier interface {
	PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error
	Close() error
}

// NoopNotifier is used when no broker is configured.
type NoopNotifier struct{}

func (NoopNotifier) PublishOrderPlaced(context.Context, models.OrderPlacedEvent) error { return nil }
func (NoopNotifier) Close() error                                                     { return nil }
