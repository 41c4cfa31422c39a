package postgres

import (
	"context"
	"errors"

	"github.com/alenjb/deli/internal/models"
	"github.com/jackc/pgx/v5"
)

type SummaryRepository struct {
	q querier
	// lockRows makes Get take a row lock so a read-modify-write inside WithTx is serialized
	lockRows bool
}

const summaryColumns = `store_id, store_name, total_orders, delayed_orders, total_delay_minutes, last_analyzed_at`

func (r *SummaryRepository) Get(ctx context.Context, storeID string) (*models.StoreDelaySummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM store_delay_summaries WHERE store_id = $1`
	if r.lockRows {
		query += ` FOR UPDATE`
	}
	summary, err := scanSummary(r.q.QueryRow(ctx, query, storeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrSummaryNotFound
	}
	return summary, err
}

// GetAll returns summaries in storage order; callers sort as needed.
func (r *SummaryRepository) GetAll(ctx context.Context) ([]*models.StoreDelaySummary, error) {
	rows, err := r.q.Query(ctx, `SELECT `+summaryColumns+` FROM store_delay_summaries ORDER BY store_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.StoreDelaySummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (r *SummaryRepository) Save(ctx context.Context, summary *models.StoreDelaySummary) error {
	query := `
        INSERT INTO store_delay_summaries (` + summaryColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (store_id) DO UPDATE SET
            store_name = EXCLUDED.store_name,
            total_orders = EXCLUDED.total_orders,
            delayed_orders = EXCLUDED.delayed_orders,
            total_delay_minutes = EXCLUDED.total_delay_minutes,
            last_analyzed_at = EXCLUDED.last_analyzed_at`

	_, err := r.q.Exec(ctx, query,
		summary.StoreID,
		summary.StoreName,
		summary.TotalOrders,
		summary.DelayedOrders,
		summary.TotalDelayMinutes,
		summary.LastAnalyzedAt,
	)
	return err
}

func scanSummary(row pgx.Row) (*models.StoreDelaySummary, error) {
	summary := &models.StoreDelaySummary{}
	err := row.Scan(
		&summary.StoreID,
		&summary.StoreName,
		&summary.TotalOrders,
		&summary.DelayedOrders,
		&summary.TotalDelayMinutes,
		&summary.LastAnalyzedAt,
	)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
