// Package loader merges parsed records into the base tables.
//
// A load stages the records in a temporary table and copies them into the base
// table with an insert-if-absent statement, all inside one transaction. Rows whose
// natural key is already stored are left untouched, so loads can be repeated.
package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/cropwx/internal/dataset"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	tx "github.com/tigerroll/cropwx/pkg/batch/core/tx"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

const moduleName = "loader"

// Staging modes.
const (
	// StagingCopy streams rows with the COPY protocol. PostgreSQL only; other engines fall back to StagingInsert.
	StagingCopy = "copy"
	// StagingInsert stages rows with batched multi-row INSERT statements.
	StagingInsert = "insert"
)

// DefaultBatchSize is the number of rows per staging INSERT.
const DefaultBatchSize = 1000

// Options configures a Loader.
type Options struct {
	// DBRef names the datasource holding the base tables.
	DBRef       string
	BatchSize   int
	StagingMode string
	// Recorder receives the duration of every merge. Nil disables it.
	Recorder metrics.MetricRecorder
}

// LoadResult reports the outcome of one load.
type LoadResult struct {
	Dataset string
	// Staged is the number of rows handed to the merge.
	Staged int
	// Inserted is the number of rows the merge added to the base table.
	Inserted int64
	Before   int64
	After    int64
	Duration time.Duration
}

// Loader merges rows into base tables.
type Loader struct {
	resolver  database.DBConnectionResolver
	txFactory tx.TransactionManagerFactory
	ensurer   migration.SchemaEnsurer
	opts      Options
}

// NewLoader creates a new Loader instance.
func NewLoader(resolver database.DBConnectionResolver, txFactory tx.TransactionManagerFactory, ensurer migration.SchemaEnsurer, opts Options) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.StagingMode == "" {
		opts.StagingMode = StagingCopy
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNoOpMetricRecorder()
	}
	return &Loader{resolver: resolver, txFactory: txFactory, ensurer: ensurer, opts: opts}
}

// Load merges rows into the table of target. Each row holds the values of
// target.Columns in order. The base table is unchanged when Load fails.
func (l *Loader) Load(ctx context.Context, target dataset.Target, rows [][]interface{}) (LoadResult, error) {
	start := time.Now()
	result := LoadResult{Dataset: target.Name, Staged: len(rows)}

	if err := l.ensurer.EnsureSchema(ctx, l.opts.DBRef); err != nil {
		return result, err
	}
	if len(rows) == 0 {
		logger.Infof("No %s records to load.", target.Name)
		return result, nil
	}

	conn, err := l.resolver.ResolveDBConnection(ctx, l.opts.DBRef)
	if err != nil {
		return result, exception.NewConnectionError(moduleName, fmt.Sprintf("failed to resolve database connection '%s'", l.opts.DBRef), err)
	}
	cfg := conn.Config()
	d, err := dialectFor(cfg.Type)
	if err != nil {
		return result, exception.NewBatchError(moduleName, "cannot load", err)
	}
	m := merge{
		dialect: d,
		table:   target.Table.Qualified(cfg.UsesSchemas()),
		stage:   stagingName(target.Table.Name),
		target:  target,
		rows:    rows,
	}

	var counts mergeCounts
	if cfg.Type == "postgres" && strings.EqualFold(l.opts.StagingMode, StagingCopy) {
		counts, err = m.copyIn(ctx, conn)
	} else {
		counts, err = m.viaTx(ctx, l.txFactory.NewTransactionManager(conn), l.opts.BatchSize)
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	l.opts.Recorder.RecordDuration(ctx, "load", time.Since(start), map[string]string{"target": target.Name, "status": status})
	if err != nil {
		return result, err
	}

	result.Before, result.After = counts.before, counts.after
	result.Inserted = counts.after - counts.before
	result.Duration = time.Since(start)
	logger.Infof("Loaded %s: staged %d rows, inserted %d new rows into %s (%d -> %d).",
		target.Name, result.Staged, result.Inserted, m.table, result.Before, result.After)
	return result, nil
}

type mergeCounts struct {
	before int64
	after  int64
}

// merge is one staging and merge of rows into table.
type merge struct {
	dialect dialect
	table   string
	stage   string
	target  dataset.Target
	rows    [][]interface{}
}

// viaTx runs the merge through the transaction manager.
func (m merge) viaTx(ctx context.Context, tm tx.TransactionManager, batchSize int) (counts mergeCounts, err error) {
	t, err := tm.Begin(ctx)
	if err != nil {
		return counts, exception.NewConnectionError(moduleName, "failed to begin load transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tm.Rollback(t); rbErr != nil {
				logger.Errorf("Failed to roll back load of %s: %v", m.target.Name, rbErr)
			}
		}
	}()

	if counts.before, err = t.Count(ctx, m.table, tx.Query{}); err != nil {
		return counts, exception.NewBatchError(moduleName, fmt.Sprintf("failed to count rows of %s", m.table), err)
	}
	for _, stmt := range m.dialect.createStaging(m.stage, m.table, m.target.Columns) {
		if _, err = t.ExecuteRaw(ctx, stmt); err != nil {
			return counts, exception.NewBatchError(moduleName, "failed to create staging table", err)
		}
	}
	for start := 0; start < len(m.rows); start += batchSize {
		end := min(start+batchSize, len(m.rows))
		batch := m.rows[start:end]
		args := make([]interface{}, 0, len(batch)*len(m.target.Columns))
		for _, row := range batch {
			args = append(args, row...)
		}
		if _, err = t.ExecuteRaw(ctx, insertValues(m.stage, m.target.Columns, len(batch)), args...); err != nil {
			return counts, exception.NewBatchError(moduleName, fmt.Sprintf("failed to stage rows %d-%d", start, end), err)
		}
	}
	if _, err = t.ExecuteRaw(ctx, m.dialect.merge(m.table, m.stage, m.target.Columns, m.target.Key)); err != nil {
		return counts, exception.NewBatchError(moduleName, fmt.Sprintf("failed to merge into %s", m.table), err)
	}
	if drop := m.dialect.dropStaging(m.stage); drop != "" {
		if _, err = t.ExecuteRaw(ctx, drop); err != nil {
			return counts, exception.NewBatchError(moduleName, "failed to drop staging table", err)
		}
	}
	if counts.after, err = t.Count(ctx, m.table, tx.Query{}); err != nil {
		return counts, exception.NewBatchError(moduleName, fmt.Sprintf("failed to count rows of %s", m.table), err)
	}
	if err = tm.Commit(t); err != nil {
		return counts, exception.NewConnectionError(moduleName, "failed to commit load transaction", err)
	}
	return counts, nil
}
