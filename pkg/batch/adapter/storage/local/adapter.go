// Package local provides a local file system implementation of the storage adapter interfaces.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageAdapter "github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/cropwx/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/cropwx/pkg/batch/core/config"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// ProviderType defines the type identifier for this local storage provider.
const ProviderType = "local"

// localAdapter implements storage.StorageConnection on a directory tree rooted at BaseDir.
type localAdapter struct {
	cfg  storageConfig.StorageConfig
	name string
}

var _ storageAdapter.StorageConnection = (*localAdapter)(nil)

// NewLocalAdapter creates a localAdapter, creating BaseDir when it does not exist.
func NewLocalAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage adapter '%s': base_dir must be specified", name)
	}
	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
			return nil, fmt.Errorf("local storage adapter '%s': failed to create base_dir '%s': %w", name, cfg.BaseDir, err)
		}
	case err != nil:
		return nil, fmt.Errorf("local storage adapter '%s': failed to stat base_dir '%s': %w", name, cfg.BaseDir, err)
	case !info.IsDir():
		return nil, fmt.Errorf("local storage adapter '%s': base_dir '%s' is not a directory", name, cfg.BaseDir)
	}
	return &localAdapter{cfg: cfg, name: name}, nil
}

func (a *localAdapter) Close() error { return nil }

func (a *localAdapter) Type() string { return ProviderType }

func (a *localAdapter) Name() string { return a.name }

// Upload writes data to a temporary file and renames it into place.
func (a *localAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file in '%s': %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data to '%s': %w", fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move upload into '%s': %w", fullPath, err)
	}
	logger.Debugf("Uploaded '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

func (a *localAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}
	return file, nil
}

// ListObjects walks the bucket directory and reports slash-separated names relative to it.
func (a *localAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	basePath, err := a.resolvePath(bucket, "")
	if err != nil {
		return err
	}
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		return nil
	}
	err = filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(basePath, path)
		if err != nil {
			return err
		}
		objectName := filepath.ToSlash(rel)
		if !strings.HasPrefix(objectName, prefix) {
			return nil
		}
		return fn(objectName)
	})
	if err != nil {
		return fmt.Errorf("failed to list objects in '%s' with prefix '%s': %w", basePath, prefix, err)
	}
	return nil
}

func (a *localAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file '%s': %w", fullPath, err)
	}
	return nil
}

// resolvePath maps bucket/objectName under BaseDir and rejects paths escaping it.
func (a *localAdapter) resolvePath(bucket, objectName string) (string, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	fullPath := filepath.Join(a.cfg.BaseDir, bucket, filepath.FromSlash(objectName))

	absBase, err := filepath.Abs(a.cfg.BaseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for base_dir '%s': %w", a.cfg.BaseDir, err)
	}
	absFull, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", fullPath, err)
	}
	rel, err := filepath.Rel(absBase, absFull)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("resolved path '%s' is outside of base_dir '%s'", fullPath, a.cfg.BaseDir)
	}
	return fullPath, nil
}

// LocalProvider implements storage.StorageProvider for local directories.
type LocalProvider struct {
	cfg         *coreConfig.Config
	connections map[string]storageAdapter.StorageConnection
	mu          sync.Mutex
}

// NewLocalProvider creates a new LocalProvider instance.
func NewLocalProvider(cfg *coreConfig.Config) *LocalProvider {
	return &LocalProvider{
		cfg:         cfg,
		connections: make(map[string]storageAdapter.StorageConnection),
	}
}

// GetConnection returns the cached connection for name, creating it on first use.
func (p *LocalProvider) GetConnection(ctx context.Context, name string) (storageAdapter.StorageConnection, error) {
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
	conn, err := NewLocalAdapter(sc, name)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Debugf("Created local storage connection '%s' (base_dir: %s).", name, sc.BaseDir)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *LocalProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close local storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result
}

// Type returns "local".
func (p *LocalProvider) Type() string {
	return ProviderType
}
