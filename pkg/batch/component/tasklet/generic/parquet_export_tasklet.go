// Package generic provides reusable tasklets.
package generic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	reader "github.com/tigerroll/cropwx/pkg/batch/component/step/reader"
	writer "github.com/tigerroll/cropwx/pkg/batch/component/step/writer"
	"github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	"github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// ExecutionContext keys written by GenericParquetExportTasklet.
const (
	ContextKeyExportedRows    = "export.rows"
	ContextKeyExportedObjects = "export.objects"
)

// ParquetExportConfig holds the configuration for GenericParquetExportTasklet.
type ParquetExportConfig struct {
	DbRef    string
	Query    string
	PageSize int
	Writer   writer.ParquetWriterConfig
}

// GenericParquetExportTasklet streams the rows of a query into partitioned Parquet files.
// Reading and encoding run concurrently, connected by a channel of pages.
type GenericParquetExportTasklet[T any] struct {
	config               ParquetExportConfig
	dbConnectionResolver database.DBConnectionResolver
	parquetWriter        *writer.ParquetWriter[T]
	scanFunc             func(rows *sql.Rows) (T, error)
	stepExecutionContext model.ExecutionContext
}

// NewGenericParquetExportTasklet creates a new instance of GenericParquetExportTasklet.
func NewGenericParquetExportTasklet[T any](
	config ParquetExportConfig,
	dbConnectionResolver database.DBConnectionResolver,
	storageConnectionResolver storage.StorageConnectionResolver,
	itemPrototype *T,
	scanFunc func(rows *sql.Rows) (T, error),
	partitionKeyFunc func(T) (string, error),
) (*GenericParquetExportTasklet[T], error) {
	if config.DbRef == "" {
		return nil, exception.NewBatchErrorf("tasklet", "a database reference is required for the parquet export")
	}
	if config.Query == "" {
		return nil, exception.NewBatchErrorf("tasklet", "a query is required for the parquet export")
	}
	if config.PageSize <= 0 {
		config.PageSize = 5000
	}
	pw, err := writer.NewParquetWriter[T]("parquetExport", config.Writer, storageConnectionResolver, itemPrototype, partitionKeyFunc)
	if err != nil {
		return nil, err
	}
	return &GenericParquetExportTasklet[T]{
		config:               config,
		dbConnectionResolver: dbConnectionResolver,
		parquetWriter:        pw,
		scanFunc:             scanFunc,
		stepExecutionContext: model.NewExecutionContext(),
	}, nil
}

// Execute reads every row of the query and uploads the resulting Parquet files.
func (t *GenericParquetExportTasklet[T]) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	dbConn, err := t.dbConnectionResolver.ResolveDBConnection(ctx, t.config.DbRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewConnectionError("tasklet", fmt.Sprintf("failed to resolve database connection '%s'", t.config.DbRef), err)
	}
	sqlDB, err := dbConn.GetSQLDB()
	if err != nil {
		return model.ExitStatusFailed, exception.NewConnectionError("tasklet", "failed to get *sql.DB", err)
	}

	sqlReader := reader.NewSqlCursorReader[T](sqlDB, stepExecution.StepName+"_reader", t.config.Query, nil, t.scanFunc)
	if err := sqlReader.Open(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	defer sqlReader.Close(ctx)

	if err := t.parquetWriter.Open(ctx); err != nil {
		return model.ExitStatusFailed, err
	}

	pages := make(chan []T, 2)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(pages)
		page := make([]T, 0, t.config.PageSize)
		for {
			item, err := sqlReader.Read(gctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			page = append(page, item)
			if len(page) == t.config.PageSize {
				select {
				case pages <- page:
				case <-gctx.Done():
					return gctx.Err()
				}
				page = make([]T, 0, t.config.PageSize)
			}
		}
		if len(page) > 0 {
			select {
			case pages <- page:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	written := 0
	g.Go(func() error {
		for page := range pages {
			if err := t.parquetWriter.Write(gctx, page); err != nil {
				return err
			}
			written += len(page)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.ExitStatusFailed, err
	}
	if err := t.parquetWriter.Close(ctx); err != nil {
		return model.ExitStatusFailed, err
	}

	stepExecution.ReadCount += sqlReader.ReadCount()
	stepExecution.WriteCount += written
	t.stepExecutionContext.Put(ContextKeyExportedRows, written)
	t.stepExecutionContext.Put(ContextKeyExportedObjects, t.parquetWriter.WrittenObjects())
	logger.Infof("Parquet export: %d rows written to %d objects.", written, len(t.parquetWriter.WrittenObjects()))
	if written == 0 {
		return model.ExitStatusNoOp, nil
	}
	return model.ExitStatusCompleted, nil
}

func (t *GenericParquetExportTasklet[T]) Close(ctx context.Context) error {
	return nil
}

func (t *GenericParquetExportTasklet[T]) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.stepExecutionContext = ec
	return nil
}

func (t *GenericParquetExportTasklet[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.stepExecutionContext, nil
}

var _ port.Tasklet = (*GenericParquetExportTasklet[any])(nil)
