package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
)

// copyIn runs the merge on one pooled connection through pgx, staging the rows with COPY.
func (m merge) copyIn(ctx context.Context, conn database.DBConnection) (mergeCounts, error) {
	var counts mergeCounts
	sqlDB, err := conn.GetSQLDB()
	if err != nil {
		return counts, exception.NewConnectionError(moduleName, "no connection pool", err)
	}
	c, err := sqlDB.Conn(ctx)
	if err != nil {
		return counts, exception.NewConnectionError(moduleName, "failed to acquire a connection", err)
	}
	defer c.Close()

	err = c.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return exception.NewBatchErrorf(moduleName, "COPY staging needs the pgx driver, got %T", driverConn)
		}
		counts, err = m.copyMerge(ctx, sc.Conn())
		return err
	})
	return counts, err
}

func (m merge) copyMerge(ctx context.Context, pc *pgx.Conn) (counts mergeCounts, err error) {
	ptx, err := pc.Begin(ctx)
	if err != nil {
		return counts, exception.NewConnectionError(moduleName, "failed to begin load transaction", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = ptx.Rollback(ctx) }()

	countSQL := "SELECT COUNT(*) FROM " + m.table
	if err = ptx.QueryRow(ctx, countSQL).Scan(&counts.before); err != nil {
		return counts, pgError("count rows", err)
	}
	for _, stmt := range m.dialect.createStaging(m.stage, m.table, m.target.Columns) {
		if _, err = ptx.Exec(ctx, stmt); err != nil {
			return counts, pgError("create staging table", err)
		}
	}
	n, err := ptx.CopyFrom(ctx, pgx.Identifier{m.stage}, m.target.Columns, pgx.CopyFromRows(m.rows))
	if err != nil {
		return counts, pgError("copy into staging table", err)
	}
	if int(n) != len(m.rows) {
		return counts, exception.NewBatchErrorf(moduleName, "copied %d of %d rows into %s", n, len(m.rows), m.stage)
	}
	if _, err = ptx.Exec(ctx, m.dialect.merge(m.table, m.stage, m.target.Columns, m.target.Key)); err != nil {
		return counts, pgError("merge", err)
	}
	if err = ptx.QueryRow(ctx, countSQL).Scan(&counts.after); err != nil {
		return counts, pgError("count rows", err)
	}
	if err = ptx.Commit(ctx); err != nil {
		return counts, exception.NewConnectionError(moduleName, "failed to commit load transaction", err)
	}
	return counts, nil
}

// pgError keeps the server's detail and SQLSTATE in the message.
func pgError(step string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := fmt.Sprintf("%s: %s (SQLSTATE %s)", step, pgErr.Message, pgErr.SQLState())
		if pgErr.Detail != "" {
			msg += ": " + pgErr.Detail
		}
		return exception.NewBatchError(moduleName, msg, err)
	}
	return exception.NewBatchError(moduleName, step+" failed", err)
}
