package ordersRepo

import (
	"context"

	"broadway/models"
)

// OrderRepository is the append-only order ledger.
type OrderRepository interface {
	// Insert writes the order header and all its lines atomically and fills in ID, Status and PlacedAt.
	Insert(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
}
