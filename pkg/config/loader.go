package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/autoscaler")
	}

	// Environment variable settings
	v.SetEnvPrefix("AUTOSCALER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "fleet-autoscaler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "autoscaler")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.ping_timeout", "5s")

	// Cache defaults
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.response_time_key", "autoscaler:samples:response_time")
	v.SetDefault("cache.error_rate_key", "autoscaler:samples:error_rate")
	v.SetDefault("cache.queue_length_key", "autoscaler:samples:queue_length")
	v.SetDefault("cache.read_timeout", "2s")

	// Collector defaults
	v.SetDefault("collector.timeout", "5s")
	v.SetDefault("collector.retry_attempts", 3)

	// Scaling defaults
	v.SetDefault("scaling.services", []string{"api", "worker", "edge"})
	v.SetDefault("scaling.tick_interval", "30s")
	v.SetDefault("scaling.execute_timeout", "25s")
	v.SetDefault("scaling.cpu_scale_up", 80.0)
	v.SetDefault("scaling.cpu_scale_down", 30.0)
	v.SetDefault("scaling.memory_scale_up", 85.0)
	v.SetDefault("scaling.memory_scale_down", 40.0)
	v.SetDefault("scaling.response_time_scale_up", 2000.0)
	v.SetDefault("scaling.error_rate_scale_up", 5.0)
	v.SetDefault("scaling.queue_length_scale_up", 100)
	v.SetDefault("scaling.min_instances", 1)
	v.SetDefault("scaling.max_instances", 10)
	v.SetDefault("scaling.scale_cooldown_seconds", 300)

	// Orchestrator defaults
	v.SetDefault("orchestrator.type", "docker")
	v.SetDefault("orchestrator.endpoint", "unix:///var/run/docker.sock")
	v.SetDefault("orchestrator.service_label", "service")
	v.SetDefault("orchestrator.request_timeout", "10s")
	v.SetDefault("orchestrator.stop_grace", "30s")
	v.SetDefault("orchestrator.retry_attempts", 3)
	v.SetDefault("orchestrator.circuit_breaker.max_failures", 5)
	v.SetDefault("orchestrator.circuit_breaker.timeout", "30s")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.operator_user", "operator")
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 256)

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("events.ledger_size", 1000)
}
