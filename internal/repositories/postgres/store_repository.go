package postgres

import (
	"context"
	"errors"

	"github.com/alenjb/deli/internal/models"
	"github.com/jackc/pgx/v5"
)

type StoreRepository struct {
	q querier
}

const storeColumns = `id, name, avg_prep_minutes, address, latitude, longitude`

func (r *StoreRepository) BulkCreate(ctx context.Context, stores []*models.Store) error {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO stores (` + storeColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, store := range stores {
		_, err = tx.Exec(ctx, query,
			store.ID,
			store.Name,
			store.AvgPrepMinutes,
			store.Address,
			store.Location.Lat,
			store.Location.Lon,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *StoreRepository) Create(ctx context.Context, store *models.Store) error {
	query := `INSERT INTO stores (` + storeColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		store.ID,
		store.Name,
		store.AvgPrepMinutes,
		store.Address,
		store.Location.Lat,
		store.Location.Lon,
	)
	return err
}

func (r *StoreRepository) Get(ctx context.Context, id string) (*models.Store, error) {
	row := r.q.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	store, err := scanStore(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrStoreNotFound
	}
	return store, err
}

func (r *StoreRepository) GetAll(ctx context.Context) ([]*models.Store, error) {
	rows, err := r.q.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []*models.Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

func (r *StoreRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM stores").Scan(&count)
	return count, err
}

func scanStore(row pgx.Row) (*models.Store, error) {
	store := &models.Store{}
	err := row.Scan(
		&store.ID,
		&store.Name,
		&store.AvgPrepMinutes,
		&store.Address,
		&store.Location.Lat,
		&store.Location.Lon,
	)
	if err != nil {
		return nil, err
	}
	return store, nil
}
