// Package reader provides item readers over database cursors.
package reader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// SqlCursorReader is an ItemReader that streams the rows of one query.
type SqlCursorReader[T any] struct {
	db        *sql.DB
	name      string
	query     string
	args      []any
	mapper    func(*sql.Rows) (T, error)
	rows      *sql.Rows
	readCount int
}

// NewSqlCursorReader creates a new instance of SqlCursorReader.
func NewSqlCursorReader[T any](db *sql.DB, name string, query string, args []any, mapper func(*sql.Rows) (T, error)) *SqlCursorReader[T] {
	return &SqlCursorReader[T]{
		db:     db,
		name:   name,
		query:  query,
		args:   args,
		mapper: mapper,
	}
}

// Open executes the query.
func (r *SqlCursorReader[T]) Open(ctx context.Context) error {
	logger.Debugf("SqlCursorReader '%s': executing %s", r.name, r.query)
	rows, err := r.db.QueryContext(ctx, r.query, r.args...)
	if err != nil {
		return exception.NewBatchError("reader", fmt.Sprintf("failed to execute query for '%s'", r.name), err)
	}
	r.rows = rows
	r.readCount = 0
	return nil
}

// Read maps the next row. It returns io.EOF when the cursor is exhausted.
func (r *SqlCursorReader[T]) Read(ctx context.Context) (T, error) {
	var item T
	if r.rows == nil {
		return item, exception.NewBatchError("reader", fmt.Sprintf("'%s' is not open", r.name), errors.New("reader not initialized"))
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return item, exception.NewBatchError("reader", fmt.Sprintf("row iteration failed for '%s'", r.name), err)
		}
		return item, io.EOF
	}
	mapped, err := r.mapper(r.rows)
	if err != nil {
		return item, exception.NewBatchError("reader", fmt.Sprintf("failed to map row for '%s'", r.name), err)
	}
	r.readCount++
	return mapped, nil
}

// ReadCount returns the number of rows read since Open.
func (r *SqlCursorReader[T]) ReadCount() int {
	return r.readCount
}

// Close releases the cursor.
func (r *SqlCursorReader[T]) Close(ctx context.Context) error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	if err != nil {
		return exception.NewBatchError("reader", fmt.Sprintf("failed to close rows for '%s'", r.name), err)
	}
	return nil
}

var _ port.ItemReader[any] = (*SqlCursorReader[any])(nil)
