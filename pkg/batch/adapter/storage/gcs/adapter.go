// Package gcs provides a Google Cloud Storage implementation of the storage adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/cropwx/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/cropwx/pkg/batch/core/config"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// ProviderType defines the type identifier for this provider.
const ProviderType = "gcs"

type gcsAdapter struct {
	client *storage.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter opens a storage client. An empty credentials_file uses application default credentials.
func NewGCSAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	return &gcsAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *gcsAdapter) Close() error { return a.client.Close() }

func (a *gcsAdapter) Type() string { return ProviderType }

func (a *gcsAdapter) Name() string { return a.name }

func (a *gcsAdapter) bucket(name string) (*storage.BucketHandle, error) {
	if name == "" {
		name = a.cfg.BucketName
	}
	if name == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': no bucket specified", a.name)
	}
	return a.client.Bucket(name), nil
}

func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	w := b.Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload gs object '%s': %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs object '%s': %w", objectName, err)
	}
	logger.Debugf("Uploaded gs object '%s' (gcs adapter '%s').", objectName, a.name)
	return nil
}

func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	b, err := a.bucket(bucket)
	if err != nil {
		return nil, err
	}
	r, err := b.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs object '%s': %w", objectName, err)
	}
	return r, nil
}

func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	it := b.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs objects with prefix '%s': %w", prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	b, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.Object(objectName).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete gs object '%s': %w", objectName, err)
	}
	return nil
}

// GCSProvider implements storage.StorageProvider for Google Cloud Storage.
type GCSProvider struct {
	cfg         *coreConfig.Config
	connections map[string]storageAdapter.StorageConnection
	mu          sync.Mutex
}

// NewGCSProvider creates a new GCSProvider instance.
func NewGCSProvider(cfg *coreConfig.Config) *GCSProvider {
	return &GCSProvider{
		cfg:         cfg,
		connections: make(map[string]storageAdapter.StorageConnection),
	}
}

func (p *GCSProvider) GetConnection(ctx context.Context, name string) (storageAdapter.StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}
	sc, err := storageConfig.Lookup(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if sc.Type != ProviderType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, ProviderType, sc.Type)
	}
	conn, err := NewGCSAdapter(ctx, sc, name)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Debugf("Created gcs storage connection '%s' (bucket: %s).", name, sc.BucketName)
	return conn, nil
}

func (p *GCSProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close gcs connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result
}

func (p *GCSProvider) Type() string {
	return ProviderType
}
