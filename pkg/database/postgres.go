package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// openPostgres opens a PostgreSQL handle for descriptors resolved from a
// postgres:// or postgresql:// DATABASE_URL. The pool is capped at one
// connection and verified with a ping.
func openPostgres(ctx context.Context, d ConnectionDescriptor) (Handle, error) {
	poolConfig, err := pgxpool.ParseConfig(d.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PostgreSQL connection string")
	}
	poolConfig.MaxConns = 1
	poolConfig.MinConns = 0
	if poolConfig.ConnConfig.ConnectTimeout == 0 {
		poolConfig.ConnConfig.ConnectTimeout = dialTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping PostgreSQL database")
	}
	return &pgxHandle{pool: pool}, nil
}

// pgxHandle adapts a pgx pool to Handle.
type pgxHandle struct {
	pool *pgxpool.Pool
}

func (h *pgxHandle) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

func (h *pgxHandle) QueryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		m, err := pgx.RowToMap(row)
		return Record(m), err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect rows")
	}
	return records, nil
}

func (h *pgxHandle) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := h.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "statement failed")
	}
	return tag.RowsAffected(), nil
}

func (h *pgxHandle) Close() error {
	h.pool.Close()
	return nil
}
