package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB struct {
	pool *pgxpool.Pool
	repositories.Repositories
}

func Connect(ctx context.Context, cfg models.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return NewDB(pool), nil
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool, Repositories: newRepositories(pool, false)}
}

func (db *DB) WithTx(ctx context.Context, fn func(tx repositories.Repositories) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(newRepositories(tx, true)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (db *DB) Close() {
	if db != nil && db.pool != nil {
		db.pool.Close()
	}
}

type repos struct {
	stores    *StoreRepository
	orders    *OrderRepository
	summaries *SummaryRepository
	history   *EtaHistoryRepository
}

func newRepositories(q querier, inTx bool) *repos {
	return &repos{
		stores:    &StoreRepository{q: q},
		orders:    &OrderRepository{q: q},
		summaries: &SummaryRepository{q: q, lockRows: inTx},
		history:   &EtaHistoryRepository{q: q},
	}
}

func (r *repos) Stores() repositories.StoreRepository          { return r.stores }
func (r *repos) Orders() repositories.OrderRepository          { return r.orders }
func (r *repos) Summaries() repositories.SummaryRepository     { return r.summaries }
func (r *repos) EtaHistory() repositories.EtaHistoryRepository { return r.history }
