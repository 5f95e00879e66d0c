package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Engine.PerSourceTimeout)
	assert.Equal(t, 5, cfg.Engine.TopK)
	assert.Equal(t, 4000, cfg.Combine.MaxTotalTokens)
	assert.Equal(t, "content", cfg.Combine.DedupMethod)
	assert.Equal(t, ":memory:", cfg.Dictionary.Path)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  per_source_timeout: 3s
  top_k: 8
  strict: true
combine:
  max_total_tokens: 2000
  entity_weight: 0.5
  relationship_weight: 0.2
  chunk_weight: 0.3
  rank_method: mmr
redis:
  enabled: true
  addr: "redis:6379"
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Engine.PerSourceTimeout)
	assert.Equal(t, 8, cfg.Engine.TopK)
	assert.True(t, cfg.Engine.Strict)
	assert.Equal(t, 2000, cfg.Combine.MaxTotalTokens)
	assert.Equal(t, "mmr", cfg.Combine.RankMethod)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	// 文件未覆盖的字段保持默认值
	assert.Equal(t, 0.85, cfg.Combine.DedupThreshold)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  top_k: 8
`)

	t.Setenv("MEDGRAPH_ENGINE_TOP_K", "12")
	t.Setenv("MEDGRAPH_ENGINE_PER_SOURCE_TIMEOUT", "2s")
	t.Setenv("MEDGRAPH_COMBINE_ENTITY_WEIGHT", "0.4")
	t.Setenv("MEDGRAPH_LOG_OUTPUT_PATHS", "stdout, /var/log/medgraph.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Engine.TopK)
	assert.Equal(t, 2*time.Second, cfg.Engine.PerSourceTimeout)
	assert.Equal(t, 0.4, cfg.Combine.EntityWeight)
	assert.Equal(t, []string{"stdout", "/var/log/medgraph.log"}, cfg.Log.OutputPaths)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/medgraph.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Engine.TopK)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "engine: [not a map")
	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
}

func TestLoad_ValidatorRejects(t *testing.T) {
	path := writeConfigFile(t, `
combine:
  entity_weight: 0.9
  relationship_weight: 0.9
  chunk_weight: 0.9
`)
	_, err := NewLoader().
		WithConfigPath(path).
		WithValidator((*Config).Validate).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights must sum to 1")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Engine.TopK = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Combine.MMRLambda = 1.5
	require.Error(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	d := DefaultConfig().Database
	dsn := d.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "sslmode=disable")
}
