package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// dialTimeout bounds the TCP dial when the caller's context has no deadline.
const dialTimeout = 10 * time.Second

// openMySQL opens a single-connection MySQL handle with utf8mb4 as the
// connection charset and pings it before returning.
func openMySQL(ctx context.Context, d ConnectionDescriptor) (Handle, error) {
	cfg, err := d.mysqlConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build MySQL configuration")
	}
	cfg.Timeout = dialTimeout

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure MySQL connector")
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping MySQL database")
	}
	return &sqlHandle{db: db}, nil
}

// sqlHandle adapts a database/sql pool to Handle.
type sqlHandle struct {
	db *sql.DB
}

func (h *sqlHandle) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *sqlHandle) QueryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (h *sqlHandle) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := h.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "statement failed")
	}
	return result.RowsAffected()
}

func (h *sqlHandle) Close() error {
	return h.db.Close()
}

// rowScanner is the subset of *sql.Rows used by scanRecords.
type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanRecords reads every row into a Record. Text columns arrive from the MySQL
// driver as []byte and are returned as strings.
func scanRecords(rows rowScanner) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read result columns")
	}

	records := make([]Record, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		record := make(Record, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				record[column] = string(b)
			} else {
				record[column] = values[i]
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate rows")
	}
	return records, nil
}
