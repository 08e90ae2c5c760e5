package ordersRepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"broadway/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgOrderRepo implements OrderRepository on PostgreSQL.
type PgOrderRepo struct {
	pool *pgxpool.Pool
}

func NewPgOrderRepo(pool *pgxpool.Pool) OrderRepository {
	return &PgOrderRepo{pool: pool}
}

// ledgerEntry copies order for insertion with its total recomputed from the lines.
func ledgerEntry(order *models.Order) (*models.Order, error) {
	if order == nil || len(order.Lines) == 0 {
		return nil, &models.ValidationError{Field: "cart", Reason: "an order needs at least one line"}
	}
	placed := *order
	placed.Lines = append([]models.CartLine(nil), order.Lines...)
	if placed.Status == "" {
		placed.Status = models.OrderPending
	}
	total := decimal.Zero
	for _, l := range placed.Lines {
		total = total.Add(l.LineTotal())
	}
	placed.Total = total
	return &placed, nil
}

func (r *PgOrderRepo) Insert(ctx context.Context, order *models.Order) (*models.Order, error) {
	placed, err := ledgerEntry(order)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (session_id, customer_name, customer_phone, total_amount, status)
		 VALUES ($1, $2, $3, $4::numeric, $5)
		 RETURNING id, placed_at`,
		placed.SessionID, placed.CustomerName, placed.CustomerPhone, placed.Total.String(), string(placed.Status),
	).Scan(&placed.ID, &placed.PlacedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for i, l := range placed.Lines {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, position, ref_kind, ref_id, name, category, variant, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric)`,
			placed.ID, i+1, string(l.Ref.Kind), l.Ref.ID, l.Name, string(l.Category), l.Variant, l.Quantity, l.UnitPrice.String(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return placed, nil
}

func (r *PgOrderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		o      models.Order
		total  string
		status string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, customer_name, customer_phone, total_amount::text, status, placed_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.SessionID, &o.CustomerName, &o.CustomerPhone, &total, &status, &o.PlacedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{What: "order", Query: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("bad total for order %d: %w", id, err)
	}
	o.Status = models.OrderStatus(status)

	lines, err := r.linesFor(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

func (r *PgOrderRepo) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, customer_name, customer_phone, total_amount::text, status, placed_at
		 FROM orders ORDER BY placed_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []models.Order{}
	ids := []int64{}
	for rows.Next() {
		var (
			o      models.Order
			total  string
			status string
		)
		if err := rows.Scan(&o.ID, &o.SessionID, &o.CustomerName, &o.CustomerPhone, &total, &status, &o.PlacedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("bad total for order %d: %w", o.ID, err)
		}
		o.Status = models.OrderStatus(status)
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *PgOrderRepo) linesFor(ctx context.Context, ids []int64) (map[int64][]models.CartLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, ref_kind, ref_id, name, category, variant, quantity, unit_price::text
		 FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.CartLine, len(ids))
	for rows.Next() {
		var (
			orderID       int64
			kind, cat, up string
			l             models.CartLine
		)
		if err := rows.Scan(&orderID, &kind, &l.Ref.ID, &l.Name, &cat, &l.Variant, &l.Quantity, &up); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		l.Ref.Kind = models.RefKind(kind)
		l.Category = models.Category(cat)
		if l.UnitPrice, err = decimal.NewFromString(up); err != nil {
			return nil, fmt.Errorf("bad unit price on order %d: %w", orderID, err)
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}
