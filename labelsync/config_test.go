package labelsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewtec/labelsync/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labelsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
storage:
  backend: minio
  bucket: datasets
  endpoint: localhost:9000
sync:
  workers: 8
  image_timeout: 15s
roboflow:
  workspace: acme
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "minio", cfg.Storage.Backend)
		assert.Equal(t, "datasets", cfg.Storage.Bucket)
		assert.Equal(t, 8, cfg.Sync.Workers)
		assert.Equal(t, 15*time.Second, cfg.Sync.ImageTimeout)
		assert.Equal(t, "acme", cfg.Roboflow.Workspace)
		// untouched keys keep their defaults
		assert.Equal(t, 10, cfg.Sync.MaxErrors)
		assert.Equal(t, "_annotations.coco.json", cfg.Storage.AnnotationsFile)
		assert.Equal(t, ":memory:", cfg.Database.Path)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, "storage:\n  bucket: datasets\n")
		t.Setenv("LABELSYNC_ROBOFLOW_API_KEY", "from-env")
		t.Setenv("LABELSYNC_SYNC_MAX_ERRORS", "3")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Roboflow.APIKey)
		assert.Equal(t, 3, cfg.Sync.MaxErrors)
	})

	t.Run("unprefixed roboflow variables", func(t *testing.T) {
		path := writeConfig(t, "storage:\n  bucket: datasets\n")
		t.Setenv("ROBOFLOW_API_KEY", "plain-key")
		t.Setenv("ROBOFLOW_WORKSPACE", "acme")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "plain-key", cfg.Roboflow.APIKey)
		assert.Equal(t, "acme", cfg.Roboflow.Workspace)
	})

	t.Run("prefixed variables win over unprefixed", func(t *testing.T) {
		path := writeConfig(t, "storage:\n  bucket: datasets\n")
		t.Setenv("ROBOFLOW_API_KEY", "plain-key")
		t.Setenv("LABELSYNC_ROBOFLOW_API_KEY", "prefixed-key")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "prefixed-key", cfg.Roboflow.APIKey)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "storage:\n  bucket: datasets\nsync:\n  duplicate_file_names: overwrite\n")
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate_file_names")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults need a bucket", func(c *Config) {}, "storage.bucket"},
		{"fs needs root", func(c *Config) { c.Storage.Backend = "fs" }, "storage.root"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
		{"minio needs endpoint", func(c *Config) { c.Storage.Backend = "minio"; c.Storage.Bucket = "b" }, "storage.endpoint"},
		{"workers", func(c *Config) { c.Storage.Bucket = "b"; c.Sync.Workers = 0 }, "sync.workers"},
		{"log format", func(c *Config) { c.Storage.Bucket = "b"; c.Logging.Format = "xml" }, "logging.format"},
		{"valid fs", func(c *Config) { c.Storage.Backend = "fs"; c.Storage.Root = "/data" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				err = cfg.ValidateStorage()
			}
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labelsync.yaml")
	sample := DefaultConfig()
	sample.Storage.Bucket = "datasets"
	require.NoError(t, WriteSampleConfig(path, sample))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, sample, cfg)

	assert.Error(t, WriteSampleConfig(path, sample), "must not overwrite")
}

func TestProjectCache(t *testing.T) {
	source := &fakeProjects{projects: []domain.Project{{ID: "p", Name: "P"}}}
	cache := NewProjectCache(source, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		projects, err := cache.ListProjects(ctx)
		require.NoError(t, err)
		assert.Len(t, projects, 1)
	}
	assert.Equal(t, 1, source.calls)

	now = now.Add(2 * time.Minute)
	_, err := cache.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)

	uncached := NewProjectCache(source, 0)
	uncached.ListProjects(ctx)
	uncached.ListProjects(ctx)
	assert.Equal(t, 4, source.calls)
}
