// Package aggregate derives the yearly weather statistics of each station from the base readings.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/cropwx/internal/dataset"
	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	tx "github.com/tigerroll/cropwx/pkg/batch/core/tx"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

const moduleName = "aggregate"

// DefaultBatchSize is the number of summary rows per INSERT.
const DefaultBatchSize = 500

var (
	readingColumns = []string{"station_id", "date", "max_temp", "min_temp", "precipitation"}
	statsKey       = []string{"station_id", "year"}
)

// Scope narrows a Recompute. Zero fields match everything.
type Scope struct {
	StationID string
	Year      int
}

// IsAll reports whether s matches every row.
func (s Scope) IsAll() bool {
	return s.StationID == "" && s.Year == 0
}

func (s Scope) String() string {
	if s.IsAll() {
		return "all"
	}
	return fmt.Sprintf("station=%q year=%d", s.StationID, s.Year)
}

// Builder writes the summary table.
type Builder struct {
	resolver  database.DBConnectionResolver
	txFactory tx.TransactionManagerFactory
	dbRef     string
	batchSize int
}

// NewBuilder creates a new Builder instance.
func NewBuilder(resolver database.DBConnectionResolver, txFactory tx.TransactionManagerFactory, dbRef string, batchSize int) *Builder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Builder{resolver: resolver, txFactory: txFactory, dbRef: dbRef, batchSize: batchSize}
}

// Build adds the summary of every (station, year) found in the base table.
// Groups already summarized are skipped, never updated. It returns the number of new summary rows.
func (b *Builder) Build(ctx context.Context) (int64, error) {
	var delta int64
	err := b.inTx(ctx, func(t tx.Tx, statsTable, wxTable string) error {
		before, err := t.Count(ctx, statsTable, tx.Query{})
		if err != nil {
			return exception.NewBatchError(moduleName, "failed to count summary rows", err)
		}
		if _, err := b.summarizeInto(ctx, t, wxTable, statsTable, Scope{}); err != nil {
			return err
		}
		after, err := t.Count(ctx, statsTable, tx.Query{})
		if err != nil {
			return exception.NewBatchError(moduleName, "failed to count summary rows", err)
		}
		delta = after - before
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Infof("Weather statistics built: %d new rows.", delta)
	return delta, nil
}

// Recompute replaces the summary rows in scope with values freshly computed from
// the base table. It returns the number of rows written.
func (b *Builder) Recompute(ctx context.Context, scope Scope) (int64, error) {
	var written, deleted int64
	err := b.inTx(ctx, func(t tx.Tx, statsTable, wxTable string) error {
		filter := map[string]interface{}{}
		if scope.StationID != "" {
			filter["station_id"] = scope.StationID
		}
		if scope.Year != 0 {
			filter["year"] = scope.Year
		}
		var err error
		deleted, err = t.ExecuteUpdate(ctx, &entity.WeatherStats{}, "DELETE", statsTable, filter)
		if err != nil {
			return exception.NewBatchError(moduleName, "failed to delete summary rows", err)
		}
		written, err = b.summarizeInto(ctx, t, wxTable, statsTable, scope)
		return err
	})
	if err != nil {
		return 0, err
	}
	logger.Infof("Weather statistics recomputed (%s): %d rows deleted, %d rows written.", scope, deleted, written)
	return written, nil
}

func (b *Builder) inTx(ctx context.Context, fn func(t tx.Tx, statsTable, wxTable string) error) (err error) {
	conn, err := b.resolver.ResolveDBConnection(ctx, b.dbRef)
	if err != nil {
		return exception.NewConnectionError(moduleName, fmt.Sprintf("failed to resolve database connection '%s'", b.dbRef), err)
	}
	useSchemas := conn.Config().UsesSchemas()
	tm := b.txFactory.NewTransactionManager(conn)
	t, err := tm.Begin(ctx)
	if err != nil {
		return exception.NewConnectionError(moduleName, "failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tm.Rollback(t); rbErr != nil {
				logger.Errorf("Failed to roll back weather statistics: %v", rbErr)
			}
		}
	}()

	if err = fn(t, dataset.WeatherStatsTable.Qualified(useSchemas), dataset.WeatherTable.Qualified(useSchemas)); err != nil {
		return err
	}
	if err = tm.Commit(t); err != nil {
		return exception.NewConnectionError(moduleName, "failed to commit transaction", err)
	}
	return nil
}

// summarizeInto streams the readings in scope, reduces them per station and year
// and inserts the summaries with skip-on-conflict. It returns the rows inserted.
func (b *Builder) summarizeInto(ctx context.Context, t tx.Tx, wxTable, statsTable string, scope Scope) (int64, error) {
	stats, err := b.summarize(ctx, t, wxTable, scope)
	if err != nil {
		return 0, err
	}
	var written int64
	for start := 0; start < len(stats); start += b.batchSize {
		batch := stats[start:min(start+b.batchSize, len(stats))]
		n, err := t.ExecuteUpsert(ctx, &batch, statsTable, statsKey, nil)
		if err != nil {
			return written, exception.NewBatchError(moduleName, "failed to insert summary rows", err)
		}
		written += n
	}
	return written, nil
}

// summarize reads the rows fully before returning so the transaction's connection is free for writes.
func (b *Builder) summarize(ctx context.Context, t tx.Tx, wxTable string, scope Scope) ([]entity.WeatherStats, error) {
	q := readingsQuery(scope)
	rows, err := t.QueryRows(ctx, wxTable, q)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to read weather readings", err)
	}
	defer rows.Close()

	var out []entity.WeatherStats
	g := newGrouper(func(s entity.WeatherStats) { out = append(out, s) })
	var n int
	for rows.Next() {
		var r entity.WeatherRecord
		if err := rows.Scan(&r.StationID, &r.Date, &r.MaxTemp, &r.MinTemp, &r.Precipitation); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to scan weather reading", err)
		}
		g.add(r)
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to read weather readings", err)
	}
	g.flush()
	logger.Debugf("Summarized %d readings into %d station-years.", n, len(out))
	return out, nil
}

func readingsQuery(scope Scope) tx.Query {
	q := tx.Query{Columns: readingColumns, OrderBy: "station_id, date"}
	var where string
	add := func(cond string, args ...interface{}) {
		if where != "" {
			where += " AND "
		}
		where += cond
		q.Args = append(q.Args, args...)
	}
	if scope.StationID != "" {
		add("station_id = ?", scope.StationID)
	}
	if scope.Year != 0 {
		from := time.Date(scope.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		add("date >= ? AND date < ?", from, from.AddDate(1, 0, 0))
	}
	q.Where = where
	return q
}
