// Package tasklet holds the job steps of cropwx: ingestion, summary maintenance and export.
package tasklet

import (
	"context"
	"fmt"

	"github.com/tigerroll/cropwx/internal/dataset"
	"github.com/tigerroll/cropwx/internal/dedup"
	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/internal/loader"
	"github.com/tigerroll/cropwx/internal/parser"
	"github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	"github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// Loader persists rows of a dataset.
type Loader interface {
	Load(ctx context.Context, target dataset.Target, rows [][]interface{}) (loader.LoadResult, error)
}

// IngestKey returns the ExecutionContext key under which an ingest step of the
// named dataset records field (files, parsed, duplicates or inserted).
func IngestKey(datasetName, field string) string {
	return fmt.Sprintf("ingest.%s.%s", datasetName, field)
}

// IngestTasklet parses one input directory, collapses duplicate records and
// merges the result into the dataset's table.
type IngestTasklet[R entity.Record] struct {
	ds     dataset.Dataset[R]
	dir    string
	opts   parser.Options
	loader Loader
	ec     model.ExecutionContext
}

// NewIngestTasklet creates a new IngestTasklet instance.
func NewIngestTasklet[R entity.Record](ds dataset.Dataset[R], dir string, opts parser.Options, l Loader) *IngestTasklet[R] {
	return &IngestTasklet[R]{ds: ds, dir: dir, opts: opts, loader: l, ec: model.NewExecutionContext()}
}

// Execute runs parse, dedup and load. Any error aborts the step; nothing is committed in that case.
func (t *IngestTasklet[R]) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	name := t.ds.Name
	res, err := parser.ParseDir(ctx, t.dir, t.ds, t.opts)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	unique, stats := dedup.WithStats(res.Records)
	if stats.Duplicates > 0 {
		logger.Infof("%s: %d duplicate records collapsed.", name, stats.Duplicates)
	}

	result, err := t.loader.Load(ctx, t.ds.Target, t.ds.Rows(unique))
	if err != nil {
		return model.ExitStatusFailed, err
	}

	stepExecution.ReadCount += stats.In
	stepExecution.FilterCount += stats.Duplicates
	stepExecution.WriteCount += int(result.Inserted)

	t.ec.Put(IngestKey(name, "files"), len(res.Files))
	t.ec.Put(IngestKey(name, "parsed"), stats.In)
	t.ec.Put(IngestKey(name, "duplicates"), stats.Duplicates)
	t.ec.Put(IngestKey(name, "inserted"), result.Inserted)

	logger.Infof("%s: %d files, %d records, %d rows added in %s.", name, len(res.Files), stats.In, result.Inserted, result.Duration)
	if stats.In == 0 {
		return model.ExitStatusNoOp, nil
	}
	return model.ExitStatusCompleted, nil
}

func (t *IngestTasklet[R]) Close(ctx context.Context) error { return nil }

func (t *IngestTasklet[R]) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}

func (t *IngestTasklet[R]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

var _ port.Tasklet = (*IngestTasklet[entity.WeatherRecord])(nil)
