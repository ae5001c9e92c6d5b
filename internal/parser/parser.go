// Package parser reads the tab-separated input files of a dataset into records.
package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/cropwx/internal/dataset"
	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// DefaultPattern selects the input files of a directory.
const DefaultPattern = "*.txt"

// Options configures a parse run. Zero values fall back to defaults.
type Options struct {
	// Pattern is a filepath.Match pattern applied to file names.
	Pattern string
	// Workers bounds the number of files parsed at once.
	Workers int
}

// Result is the outcome of parsing one directory.
type Result[R entity.Record] struct {
	// Files lists the parsed files in the order their records appear.
	Files   []string
	Records []R
}

// ListFiles returns the regular files of dir matching pattern, sorted by name.
func ListFiles(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, exception.NewBatchError("parser", fmt.Sprintf("failed to list input directory %s", dir), err)
	}
	// os.ReadDir sorts by file name.
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ok, err := filepath.Match(pattern, e.Name())
		if err != nil {
			return nil, exception.NewBatchError("parser", fmt.Sprintf("invalid file pattern %q", pattern), err)
		}
		if ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// ParseDir parses every eligible file of dir. Records are returned in file name
// order and line order within a file, whatever the number of workers.
// The first malformed line aborts the run with a ParseError.
func ParseDir[R entity.Record](ctx context.Context, dir string, ds dataset.Dataset[R], opts Options) (Result[R], error) {
	files, err := ListFiles(dir, opts.Pattern)
	if err != nil {
		return Result[R]{}, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	perFile := make([][]R, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			recs, err := ParseFile(gctx, file, ds)
			if err != nil {
				return err
			}
			perFile[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result[R]{}, err
	}

	total := 0
	for _, recs := range perFile {
		total += len(recs)
	}
	records := make([]R, 0, total)
	for _, recs := range perFile {
		records = append(records, recs...)
	}
	logger.Debugf("Parsed %d %s records from %d files in %s.", len(records), ds.Name, len(files), dir)
	return Result[R]{Files: files, Records: records}, nil
}

// ParseFile parses one file. The file stem is handed to the dataset decoder.
func ParseFile[R entity.Record](ctx context.Context, path string, ds dataset.Dataset[R]) ([]R, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, exception.NewParseError(path, 0, "cannot open file", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return Parse(ctx, f, path, stem, ds)
}

// Parse decodes the lines of r. name is used in errors only.
func Parse[R entity.Record](ctx context.Context, r io.Reader, name, stem string, ds dataset.Dataset[R]) ([]R, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	// Field counts are checked below so that whitespace-only lines can be skipped first.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var out []R
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, exception.NewParseError(name, pe.Line, pe.Err.Error(), err)
			}
			return nil, exception.NewParseError(name, 0, "read failed", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(fields) {
			continue
		}
		if len(fields) != ds.Fields {
			return nil, exception.NewParseError(name, line,
				fmt.Sprintf("%v: expected %d, got %d", csv.ErrFieldCount, ds.Fields, len(fields)), csv.ErrFieldCount)
		}
		rec, err := ds.Decode(stem, fields)
		if err != nil {
			return nil, exception.NewParseError(name, line, err.Error(), err)
		}
		out = append(out, rec)
	}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
