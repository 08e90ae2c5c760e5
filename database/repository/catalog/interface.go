package catalogRepo

import (
	"context"

	"broadway/models"
)

// CatalogRepository is the read-only query surface over menu items, deals and restaurant info.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.MenuCategory, error)
	ListItems(ctx context.Context) ([]models.MenuItem, error)
	ItemsByCategory(ctx context.Context, category models.Category) ([]models.MenuItem, error)
	// SearchItems does a case-insensitive substring search over name, section and description.
	SearchItems(ctx context.Context, query string) ([]models.MenuItem, error)
	GetItem(ctx context.Context, id string) (*models.MenuItem, error)

	ListDeals(ctx context.Context) ([]models.Deal, error)
	SearchDeals(ctx context.Context, query string) ([]models.Deal, error)
	GetDeal(ctx context.Context, id string) (*models.Deal, error)

	RestaurantInfo(ctx context.Context) (*models.RestaurantInfo, error)
}
