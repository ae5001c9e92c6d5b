package local_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/cropwx/pkg/batch/core/config"
)

func newConfig(baseDir string) *coreConfig.Config {
	cfg := coreConfig.NewConfig()
	cfg.Cropwx.Storage = map[string]interface{}{
		"exports": map[string]interface{}{
			"type":     "local",
			"base_dir": baseDir,
		},
	}
	return cfg
}

func TestLocalProvider_RoundTrip(t *testing.T) {
	ctx := context.Background()
	provider := local.NewLocalProvider(newConfig(t.TempDir()))

	conn, err := provider.GetConnection(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Type())
	assert.Equal(t, "exports", conn.Name())

	require.NoError(t, conn.Upload(ctx, "stats", "year=1990/part-0.parquet", bytes.NewBufferString("a"), "application/octet-stream"))
	require.NoError(t, conn.Upload(ctx, "stats", "year=1991/part-0.parquet", bytes.NewBufferString("b"), "application/octet-stream"))

	r, err := conn.Download(ctx, "stats", "year=1990/part-0.parquet")
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	assert.Equal(t, "a", string(body))

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "stats", "year=", func(name string) error {
		names = append(names, name)
		return nil
	}))
	sort.Strings(names)
	assert.Equal(t, []string{"year=1990/part-0.parquet", "year=1991/part-0.parquet"}, names)

	require.NoError(t, conn.DeleteObject(ctx, "stats", "year=1990/part-0.parquet"))
	require.NoError(t, conn.DeleteObject(ctx, "stats", "year=1990/part-0.parquet"))

	again, err := provider.GetConnection(ctx, "exports")
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.NoError(t, provider.CloseAll())
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	provider := local.NewLocalProvider(newConfig(t.TempDir()))
	conn, err := provider.GetConnection(ctx, "exports")
	require.NoError(t, err)

	err = conn.Upload(ctx, "", "../outside.txt", bytes.NewBufferString("x"), "text/plain")
	assert.ErrorContains(t, err, "outside of base_dir")
}

func TestConnectionResolver_DispatchesByType(t *testing.T) {
	ctx := context.Background()
	cfg := newConfig(t.TempDir())
	resolver := storage.NewConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})

	conn, err := resolver.ResolveStorageConnection(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Type())

	_, err = resolver.ResolveStorageConnection(ctx, "missing")
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, resolver.CloseAll())
}
