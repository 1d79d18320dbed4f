// Package pgsource builds tables from PostgreSQL query results. It only
// reads: every query runs in a read-only transaction that is rolled back.
package pgsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/datamaster/internal/logging"
	"github.com/JonMunkholm/datamaster/internal/table"
)

var (
	// ErrTooManyRows is returned when a result has more rows than allowed.
	ErrTooManyRows = errors.New("too many rows")

	// ErrEmptyQuery is returned for a blank SQL string.
	ErrEmptyQuery = errors.New("empty query")
)

// DB begins transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Source imports query results from a database.
type Source struct {
	db      DB
	timeout time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithTimeout bounds each import. Zero means no bound beyond the caller's
// context.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		s.timeout = d
	}
}

// New returns a Source reading from db.
func New(db DB, opts ...Option) *Source {
	s := &Source{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import runs sql and returns its result as a table. Field names come from
// the result columns. A maxRows above zero fails the import once the result
// exceeds it.
func (s *Source) Import(ctx context.Context, sql string, maxRows int) (*table.Table, error) {
	if isBlank(sql) {
		return nil, ErrEmptyQuery
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logging.FromContext(ctx).Warn("import rollback failed", "error", rbErr)
		}
	}()

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	fields := make([]string, len(descs))
	for i, fd := range descs {
		fields[i] = fd.Name
	}

	var body []table.Row
	for rows.Next() {
		if maxRows > 0 && len(body) >= maxRows {
			return nil, fmt.Errorf("%w: result exceeds %d", ErrTooManyRows, maxRows)
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(body)+1, err)
		}
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = Cell(v)
		}
		body = append(body, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("import query finished",
		slog.Int("rows", len(body)),
		slog.Int("fields", len(fields)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return table.New(fields, body), nil
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n', ';':
		default:
			return false
		}
	}
	return true
}
