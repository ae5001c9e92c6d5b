// Package writer provides item writers that export to object storage.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	"github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	"github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// StorageRef is the name of the storage connection to use.
	StorageRef string
	// Bucket overrides the connection's default bucket.
	Bucket string
	// OutputBaseDir is the object prefix of the exported files (e.g., "weather_stats").
	OutputBaseDir string
	// CompressionType is SNAPPY, GZIP or NONE. Empty means SNAPPY.
	CompressionType string
	// ReplaceExisting deletes the objects already under a partition before uploading to it.
	ReplaceExisting bool
}

// ParquetWriter buffers items by partition key and writes one Parquet file per partition on Close.
type ParquetWriter[T any] struct {
	name                      string
	config                    ParquetWriterConfig
	storageConnectionResolver storage.StorageConnectionResolver
	// itemPrototype is used for Parquet schema reflection.
	itemPrototype    *T
	partitionKeyFunc func(T) (string, error)

	storageConn   storage.StorageConnection
	bufferedItems map[string][]T
	written       []string
}

// NewParquetWriter creates a new instance of ParquetWriter.
func NewParquetWriter[T any](
	name string,
	config ParquetWriterConfig,
	storageConnectionResolver storage.StorageConnectionResolver,
	itemPrototype *T,
	partitionKeyFunc func(T) (string, error),
) (*ParquetWriter[T], error) {
	if config.StorageRef == "" {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires a storage reference", name)
	}
	if config.OutputBaseDir == "" {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires an output base directory", name)
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := getCompressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("invalid compression for ParquetWriter '%s'", name), err)
	}
	return &ParquetWriter[T]{
		name:                      name,
		config:                    config,
		storageConnectionResolver: storageConnectionResolver,
		itemPrototype:             itemPrototype,
		partitionKeyFunc:          partitionKeyFunc,
		bufferedItems:             make(map[string][]T),
	}, nil
}

// Open resolves the storage connection and clears the buffers.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	conn, err := w.storageConnectionResolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("failed to resolve storage connection '%s' for ParquetWriter '%s'", w.config.StorageRef, w.name), err)
	}
	w.storageConn = conn
	w.bufferedItems = make(map[string][]T)
	w.written = nil
	logger.Debugf("ParquetWriter '%s' opened. Target storage: %s, Base directory: %s", w.name, w.config.StorageRef, w.config.OutputBaseDir)
	return nil
}

// Write buffers items under their partition key. Nothing is uploaded until Close.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	for _, item := range items {
		key, err := w.partitionKeyFunc(item)
		if err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("failed to get partition key in ParquetWriter '%s'", w.name), err)
		}
		w.bufferedItems[key] = append(w.bufferedItems[key], item)
	}
	return nil
}

// Close encodes and uploads each partition in key order. Failures of single
// partitions are collected and the remaining partitions are still written.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	if len(w.bufferedItems) == 0 {
		logger.Infof("ParquetWriter '%s': no records buffered, nothing to upload.", w.name)
		return nil
	}
	if w.storageConn == nil {
		return exception.NewBatchErrorf("writer", "ParquetWriter '%s' is not open", w.name)
	}

	keys := make([]string, 0, len(w.bufferedItems))
	for k := range w.bufferedItems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	runID := strings.SplitN(model.NewID(), "-", 2)[0]
	stamp := time.Now().UTC().Format("20060102150405")

	var multiErr error
	for _, key := range keys {
		objectName := path.Join(w.config.OutputBaseDir, key, fmt.Sprintf("data_%s_%s.parquet", stamp, runID))
		if err := w.flushPartition(ctx, key, objectName, w.bufferedItems[key]); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError("writer",
				fmt.Sprintf("partition '%s' of ParquetWriter '%s' failed", key, w.name), err))
			continue
		}
		w.written = append(w.written, objectName)
	}
	w.bufferedItems = make(map[string][]T)
	return multiErr
}

func (w *ParquetWriter[T]) flushPartition(ctx context.Context, key, objectName string, items []T) (err error) {
	codec, _ := getCompressionCodec(w.config.CompressionType)

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, 1)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = codec
	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}

	if w.config.ReplaceExisting {
		prefix := path.Join(w.config.OutputBaseDir, key) + "/"
		var stale []string
		if err := w.storageConn.ListObjects(ctx, w.config.Bucket, prefix, func(name string) error {
			stale = append(stale, name)
			return nil
		}); err != nil {
			return err
		}
		for _, name := range stale {
			if err := w.storageConn.DeleteObject(ctx, w.config.Bucket, name); err != nil {
				return err
			}
		}
	}

	size := buf.Len()
	if err := w.storageConn.Upload(ctx, w.config.Bucket, objectName, buf, "application/vnd.apache.parquet"); err != nil {
		return err
	}
	logger.Infof("ParquetWriter '%s': uploaded %d rows (%d bytes) to %s", w.name, len(items), size, objectName)
	return nil
}

// WrittenObjects returns the object names uploaded by the last Close.
func (w *ParquetWriter[T]) WrittenObjects() []string {
	return w.written
}

func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

var _ port.ItemWriter[any] = (*ParquetWriter[any])(nil)
