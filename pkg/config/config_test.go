package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "fleet-autoscaler", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, []string{"api", "worker", "edge"}, cfg.Scaling.Services)
	assert.Equal(t, 30*time.Second, cfg.Scaling.TickInterval)
	assert.Equal(t, 80.0, cfg.Scaling.CPUScaleUp)
	assert.Equal(t, "docker", cfg.Orchestrator.Type)
	assert.Equal(t, "unix:///var/run/docker.sock", cfg.Orchestrator.Endpoint)
	assert.False(t, cfg.Database.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  name: test-autoscaler
  mode: test
scaling:
  services: [api]
  tick_interval: 10s
  max_instances: 4
collector:
  timeout: 2s
orchestrator:
  type: simulator
database:
  shards:
    - id: shard-0
      dsn: "host=localhost port=5432 dbname=shard0"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-autoscaler", cfg.App.Name)
	assert.Equal(t, []string{"api"}, cfg.Scaling.Services)
	assert.Equal(t, 10*time.Second, cfg.Scaling.TickInterval)
	assert.Equal(t, 4, cfg.Scaling.MaxInstances)
	assert.Equal(t, "simulator", cfg.Orchestrator.Type)
	require.Len(t, cfg.Database.Shards, 1)
	assert.Equal(t, "shard-0", cfg.Database.Shards[0].ID)

	// Untouched sections keep their defaults.
	assert.Equal(t, 8080, cfg.API.Port)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: "app.name",
		},
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.App.Mode = "staging" },
			wantErr: "app.mode",
		},
		{
			name:    "no services",
			mutate:  func(c *Config) { c.Scaling.Services = nil },
			wantErr: "scaling.services",
		},
		{
			name: "collector timeout not below tick interval",
			mutate: func(c *Config) {
				c.Collector.Timeout = 30 * time.Second
				c.Scaling.TickInterval = 30 * time.Second
			},
			wantErr: "collector.timeout",
		},
		{
			name: "execute timeout not below tick interval",
			mutate: func(c *Config) {
				c.Scaling.TickInterval = 10 * time.Second
				c.Scaling.ExecuteTimeout = 10 * time.Second
			},
			wantErr: "scaling.execute_timeout",
		},
		{
			name:    "negative execute timeout",
			mutate:  func(c *Config) { c.Scaling.ExecuteTimeout = -time.Second },
			wantErr: "scaling.execute_timeout",
		},
		{
			name: "sub-second tick with unset execute timeout is fine",
			mutate: func(c *Config) {
				c.Scaling.TickInterval = 500 * time.Millisecond
				c.Collector.Timeout = 100 * time.Millisecond
			},
		},
		{
			name: "min above max",
			mutate: func(c *Config) {
				c.Scaling.MinInstances = 10
				c.Scaling.MaxInstances = 2
			},
			wantErr: "max_instances",
		},
		{
			name:    "bad orchestrator type",
			mutate:  func(c *Config) { c.Orchestrator.Type = "nomad" },
			wantErr: "orchestrator.type",
		},
		{
			name: "docker backend needs endpoint",
			mutate: func(c *Config) {
				c.Orchestrator.Type = "docker"
				c.Orchestrator.Endpoint = ""
			},
			wantErr: "orchestrator.endpoint",
		},
		{
			name: "shard missing dsn",
			mutate: func(c *Config) {
				c.Database.Shards = []ShardConfig{{ID: "shard-0"}}
			},
			wantErr: "dsn",
		},
		{
			name: "database enabled requires host",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Host = ""
			},
			wantErr: "database.host",
		},
		{
			name: "production rejects default jwt secret",
			mutate: func(c *Config) {
				c.App.Mode = "production"
				c.API.OperatorPassHash = "$2a$10$abcdefghijklmnopqrstuv"
			},
			wantErr: "jwt_secret",
		},
		{
			name: "production requires operator password hash",
			mutate: func(c *Config) {
				c.App.Mode = "production"
				c.API.JWTSecret = "a-real-secret"
			},
			wantErr: "operator_pass_hash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestScalingConfig_Thresholds(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	th := cfg.Scaling.Thresholds()
	assert.Equal(t, 80.0, th.CPUScaleUp)
	assert.Equal(t, 300, th.ScaleCooldown)
	assert.Equal(t, 5*time.Minute, th.CooldownDuration())
	assert.NoError(t, th.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db.internal", Port: 5432, Name: "autoscaler",
		User: "svc", Password: "secret",
	}

	assert.Equal(t,
		"host=db.internal port=5432 user=svc password=secret dbname=autoscaler sslmode=disable",
		cfg.DSN(),
	)
}
