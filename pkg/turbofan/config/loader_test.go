package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, common.TableName, cfg.Store.Table)
	assert.Equal(t, 3, cfg.Store.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Store.RetryDelay)
	assert.Equal(t, common.StrategyUnitHoldout, cfg.Training.SplitStrategy)
	assert.Equal(t, 0.2, cfg.Training.TestFraction)
	assert.Equal(t, uint64(42), cfg.Training.Seed)
	assert.Equal(t, 100, cfg.Training.Trees)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /data/prod.db
  maxRetries: 5
  retryDelay: 250ms
training:
  splitStrategy: row-random
  testFraction: 0.25
  trees: 20
  modelPath: /models/rul.json.gz
server:
  port: 9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/prod.db", cfg.Store.Path)
	assert.Equal(t, 5, cfg.Store.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.RetryDelay)
	assert.Equal(t, common.StrategyRowRandom, cfg.Training.SplitStrategy)
	assert.Equal(t, 0.25, cfg.Training.TestFraction)
	assert.Equal(t, 20, cfg.Training.Trees)
	assert.Equal(t, 9000, cfg.Server.Port)

	// Unset fields keep their defaults
	assert.Equal(t, common.TableName, cfg.Store.Table)
	assert.Equal(t, uint64(42), cfg.Training.Seed)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
training:
  trees: 20
`)
	t.Setenv("RUL_TREES", "7")
	t.Setenv("RUL_DB_PATH", "/tmp/env.db")
	t.Setenv("RUL_STORE_RETRY_DELAY", "1s")
	t.Setenv("RUL_METRICS_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Training.Trees)
	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
	assert.Equal(t, time.Second, cfg.Store.RetryDelay)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestInvalidEnvValueFallsBack(t *testing.T) {
	t.Setenv("RUL_TREES", "lots")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Training.Trees)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "unknown field",
			body: "training:\n  treez: 3\n",
		},
		{
			name: "malformed yaml",
			body: "store: [not-a-map\n",
		},
		{
			name: "bad strategy",
			body: "training:\n  splitStrategy: by-moon-phase\n",
		},
		{
			name: "fraction out of range",
			body: "training:\n  testFraction: 1.0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "empty store path", mutate: func(c *Config) { c.Store.Path = "" }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.Store.MaxRetries = -1 }, wantErr: true},
		{name: "zero retries allowed", mutate: func(c *Config) { c.Store.MaxRetries = 0 }},
		{name: "zero trees", mutate: func(c *Config) { c.Training.Trees = 0 }, wantErr: true},
		{name: "zero fraction", mutate: func(c *Config) { c.Training.TestFraction = 0 }, wantErr: true},
		{name: "too many features", mutate: func(c *Config) { c.Training.MaxFeatures = 25 }, wantErr: true},
		{name: "min leaf zero", mutate: func(c *Config) { c.Training.MinSamplesLeaf = 0 }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
