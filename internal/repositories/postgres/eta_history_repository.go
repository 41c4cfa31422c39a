package postgres

import (
	"context"

	"github.com/alenjb/deli/internal/models"
)

type EtaHistoryRepository struct {
	q querier
}

func (r *EtaHistoryRepository) Append(ctx context.Context, entry *models.EtaHistory) error {
	query := `
        INSERT INTO eta_histories (id, order_id, previous_eta, new_eta, reason, adjusted_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		entry.ID,
		entry.OrderID,
		entry.PreviousEta,
		entry.NewEta,
		entry.Reason,
		entry.AdjustedAt,
	)
	return err
}

func (r *EtaHistoryRepository) GetByOrderID(ctx context.Context, orderID string) ([]*models.EtaHistory, error) {
	query := `
        SELECT id, order_id, previous_eta, new_eta, reason, adjusted_at
        FROM eta_histories
        WHERE order_id = $1
        ORDER BY adjusted_at, id`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.EtaHistory
	for rows.Next() {
		entry := &models.EtaHistory{}
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.PreviousEta,
			&entry.NewEta,
			&entry.Reason,
			&entry.AdjustedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
