package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/coursetrack/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Env: "development"}
	cfg.Logging.Level = "debug"
	cfg.Logging.FilePath = filepath.Join(dir, "coursetrack.log")
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(dir, "coursetrack.db")
	cfg.API.Endpoint = "http://127.0.0.1:1/graphql"
	cfg.API.Timeout = time.Second
	cfg.Catalog.Source = "file"
	cfg.Catalog.Dir = filepath.Join(dir, "catalogs")
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.TraceFile = filepath.Join(dir, "traces.json")
	return cfg
}

func TestBoot_SQLiteWiresAndCloses(t *testing.T) {
	cfg := testConfig(t)
	deps, err := boot(context.Background(), cfg, new(bytes.Buffer))
	require.NoError(t, err)

	require.NotNil(t, deps.Progress)
	require.NotNil(t, deps.Sessions)
	require.NoError(t, deps.Store.Ping(context.Background()))
	assert.NoError(t, deps.Close())
}

func TestBoot_RedisFailureReleasesEarlierResources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "redis"
	cfg.Storage.Redis.Addr = "127.0.0.1:1"

	deps, err := boot(context.Background(), cfg, new(bytes.Buffer))
	require.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "connecting to redis")

	logged, err := os.ReadFile(cfg.Logging.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "boot failed, releasing resources")
	// logger sync, telemetry shutdown and the database
	assert.Contains(t, string(logged), `"resources": 3`)
}
