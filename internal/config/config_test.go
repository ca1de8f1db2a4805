package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Crawler.Concurrency)
	assert.Equal(t, 3, cfg.Crawler.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.BackoffInitial())
	assert.Equal(t, 5*time.Second, cfg.BackoffMax())
	assert.Equal(t, "demo", cfg.Providers.WAQIToken)
	assert.NotEmpty(t, cfg.DB.DSN)
	assert.Equal(t, "data/snapshots", cfg.Storage.LocalDir)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  timeout_seconds: 120
crawler:
  concurrency: 4
  max_retries: 2
http:
  timeout_seconds: 10
rate_limit:
  default_rps: 0.5
  source_rps:
    soilgrids: 0.2
locations:
  file: locations.json
providers:
  openweather_api_key: ow-key
  waqi_token: real-token
db:
  dsn: postgres://user:pass@db:5432/telemetry
storage:
  gcs_bucket: envimetry-runs
pubsub:
  project_id: envimetry
  topic_name: runs
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.ServerTimeout())
	assert.Equal(t, 4, cfg.Crawler.Concurrency)
	assert.Equal(t, 0.5, cfg.RateLimit.DefaultRPS)
	assert.Equal(t, 0.2, cfg.RateLimit.SourceRPS["soilgrids"])
	assert.Equal(t, "locations.json", cfg.Locations.File)
	assert.Equal(t, "ow-key", cfg.Providers.OpenWeatherAPIKey)
	assert.Equal(t, "real-token", cfg.Providers.WAQIToken)
	assert.Equal(t, "postgres://user:pass@db:5432/telemetry", cfg.DB.DSN)
	assert.Equal(t, "envimetry-runs", cfg.Storage.GCSBucket)
	assert.Equal(t, "runs", cfg.PubSub.TopicName)
	assert.False(t, cfg.Logging.Development)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"BadPort", func(c *Config) { c.Server.Port = 0 }},
		{"BadConcurrency", func(c *Config) { c.Crawler.Concurrency = -1 }},
		{"BadRetries", func(c *Config) { c.Crawler.MaxRetries = 0 }},
		{"BadTimeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
		{"MissingDSN", func(c *Config) { c.DB.DSN = "" }},
		{"PubSubWithoutTopic", func(c *Config) { c.PubSub.ProjectID = "p"; c.PubSub.TopicName = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
