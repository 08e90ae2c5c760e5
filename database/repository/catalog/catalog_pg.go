package catalogRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"broadway/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const itemColumns = `id, category, section, name, description, base_price::text`

// PgCatalogRepo implements CatalogRepository on PostgreSQL.
type PgCatalogRepo struct {
	pool *pgxpool.Pool
}

// NewPgCatalogRepo creates a new catalog repository backed by the given pool.
func NewPgCatalogRepo(pool *pgxpool.Pool) CatalogRepository {
	return &PgCatalogRepo{pool: pool}
}

// newContext bounds a single catalog query.
func newContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 5*time.Second)
}

func (r *PgCatalogRepo) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT id, name, type FROM menu_categories ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.MenuCategory{}
	for rows.Next() {
		var c models.MenuCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PgCatalogRepo) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM menu_items ORDER BY position, name`)
}

func (r *PgCatalogRepo) ItemsByCategory(ctx context.Context, category models.Category) ([]models.MenuItem, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE category = $1 ORDER BY position, name`, string(category))
}

func (r *PgCatalogRepo) SearchItems(ctx context.Context, query string) ([]models.MenuItem, error) {
	pattern := "%" + query + "%"
	return r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM menu_items
		 WHERE name ILIKE $1 OR section ILIKE $1 OR description ILIKE $1 OR category ILIKE $1
		 ORDER BY position, name`, pattern)
}

func (r *PgCatalogRepo) GetItem(ctx context.Context, id string) (*models.MenuItem, error) {
	items, err := r.queryItems(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &models.NotFoundError{What: "menu item", Query: id}
	}
	return &items[0], nil
}

func (r *PgCatalogRepo) queryItems(ctx context.Context, sql string, args ...any) ([]models.MenuItem, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}

	items := []models.MenuItem{}
	ids := []string{}
	for rows.Next() {
		var (
			item  models.MenuItem
			cat   string
			price string
		)
		if err := rows.Scan(&item.ID, &cat, &item.Section, &item.Name, &item.Description, &price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		item.Category = models.Category(cat)
		if item.BasePrice, err = decimal.NewFromString(price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("bad price for %s: %w", item.ID, err)
		}
		items = append(items, item)
		ids = append(ids, item.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read menu items: %w", err)
	}
	if len(ids) == 0 {
		return items, nil
	}

	variants, err := r.variantsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Variants = variants[items[i].ID]
	}
	return items, nil
}

func (r *PgCatalogRepo) variantsFor(ctx context.Context, ids []string) (map[string][]models.Variant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT item_id, name, price::text FROM menu_item_variants WHERE item_id = ANY($1) ORDER BY item_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Variant, len(ids))
	for rows.Next() {
		var itemID, name, price string
		if err := rows.Scan(&itemID, &name, &price); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("bad variant price for %s/%s: %w", itemID, name, err)
		}
		out[itemID] = append(out[itemID], models.Variant{Name: name, Price: p})
	}
	return out, rows.Err()
}

func (r *PgCatalogRepo) ListDeals(ctx context.Context) ([]models.Deal, error) {
	return r.queryDeals(ctx, `SELECT id, name, description, items_included, availability, price::text FROM deals ORDER BY position, name`)
}

func (r *PgCatalogRepo) SearchDeals(ctx context.Context, query string) ([]models.Deal, error) {
	return r.queryDeals(ctx,
		`SELECT id, name, description, items_included, availability, price::text FROM deals
		 WHERE name ILIKE $1 OR description ILIKE $1 OR items_included ILIKE $1
		 ORDER BY position, name`, "%"+query+"%")
}

func (r *PgCatalogRepo) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	deals, err := r.queryDeals(ctx, `SELECT id, name, description, items_included, availability, price::text FROM deals WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(deals) == 0 {
		return nil, &models.NotFoundError{What: "deal", Query: id}
	}
	return &deals[0], nil
}

func (r *PgCatalogRepo) queryDeals(ctx context.Context, sql string, args ...any) ([]models.Deal, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		var (
			d     models.Deal
			price string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.ItemsIncluded, &d.Availability, &price); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		if d.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad price for deal %s: %w", d.ID, err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (r *PgCatalogRepo) RestaurantInfo(ctx context.Context) (*models.RestaurantInfo, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	var info models.RestaurantInfo
	err := r.pool.QueryRow(ctx,
		`SELECT name, country, description, services, payment_methods FROM restaurant_info ORDER BY id LIMIT 1`,
	).Scan(&info.Name, &info.Country, &info.Description, &info.Services, &info.PaymentMethods)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{What: "restaurant info", Query: "restaurant"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant info: %w", err)
	}
	return &info, nil
}
