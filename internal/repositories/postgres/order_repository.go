package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alenjb/deli/internal/models"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	q querier
}

const orderColumns = `id, user_id, store_id, distance_km, status, created_at, eta, delivered_at`

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.StoreID,
		order.DistanceKm,
		string(order.Status),
		order.CreatedAt,
		order.Eta,
		order.DeliveredAt,
	)
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	return order, err
}

func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) (*models.Order, error) {
	query := `
        UPDATE orders
        SET delivered_at = $2, status = $3
        WHERE id = $1 AND delivered_at IS NULL
        RETURNING ` + orderColumns

	row := r.q.QueryRow(ctx, query, id, deliveredAt, string(models.DeliveryStatusDelivered))
	order, err := scanOrder(row)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to mark order %s delivered: %w", id, err)
	}

	// nothing updated: either unknown or completed before
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, models.ErrAlreadyDelivered
}

func (r *OrderRepository) UpdateEta(ctx context.Context, id string, eta time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE orders SET eta = $2 WHERE id = $1`, id, eta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) FindByStoreDeliveredAfter(ctx context.Context, storeID string, after time.Time) ([]*models.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE store_id = $1 AND delivered_at > $2
        ORDER BY delivered_at, id`
	return r.queryOrders(ctx, query, storeID, after)
}

func (r *OrderRepository) FindDeliveredBetween(ctx context.Context, start, end time.Time) ([]*models.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE delivered_at >= $1 AND delivered_at < $2
        ORDER BY store_id, delivered_at, id`
	return r.queryOrders(ctx, query, start, end)
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var status string
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.StoreID,
		&order.DistanceKm,
		&status,
		&order.CreatedAt,
		&order.Eta,
		&order.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = models.DeliveryStatus(status)
	return order, nil
}
