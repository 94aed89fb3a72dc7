package config

import (
	"fmt"
	"time"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Collector    CollectorConfig    `mapstructure:"collector"`
	Scaling      ScalingConfig      `mapstructure:"scaling"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	API          APIConfig          `mapstructure:"api"`
	WebSocket    WebSocketConfig    `mapstructure:"websocket"`
	Prometheus   PrometheusConfig   `mapstructure:"prometheus"`
	Events       EventsConfig       `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig covers the primary database (scaling event persistence)
// and the sharded stores whose connection counts feed the collector.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
	Shards          []ShardConfig `mapstructure:"shards"`
}

type ShardConfig struct {
	ID  string `mapstructure:"id"`
	DSN string `mapstructure:"dsn"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type CacheConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	ResponseTimeKey string        `mapstructure:"response_time_key"`
	ErrorRateKey    string        `mapstructure:"error_rate_key"`
	QueueLengthKey  string        `mapstructure:"queue_length_key"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
}

type CollectorConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
}

// ScalingConfig seeds the hot-reloadable threshold store and lists the
// logical service tiers under management.
type ScalingConfig struct {
	Services            []string      `mapstructure:"services"`
	TickInterval        time.Duration `mapstructure:"tick_interval"`
	ExecuteTimeout      time.Duration `mapstructure:"execute_timeout"`
	CPUScaleUp          float64       `mapstructure:"cpu_scale_up"`
	CPUScaleDown        float64       `mapstructure:"cpu_scale_down"`
	MemoryScaleUp       float64       `mapstructure:"memory_scale_up"`
	MemoryScaleDown     float64       `mapstructure:"memory_scale_down"`
	ResponseTimeScaleUp float64       `mapstructure:"response_time_scale_up"`
	ErrorRateScaleUp    float64       `mapstructure:"error_rate_scale_up"`
	QueueLengthScaleUp  int           `mapstructure:"queue_length_scale_up"`
	MinInstances        int           `mapstructure:"min_instances"`
	MaxInstances        int           `mapstructure:"max_instances"`
	ScaleCooldown       int           `mapstructure:"scale_cooldown_seconds"`
}

type OrchestratorConfig struct {
	Type           string               `mapstructure:"type"`
	Endpoint       string               `mapstructure:"endpoint"`
	ServiceLabel   string               `mapstructure:"service_label"`
	RequestTimeout time.Duration        `mapstructure:"request_timeout"`
	StopGrace      time.Duration        `mapstructure:"stop_grace"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type APIConfig struct {
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	RateLimit        int           `mapstructure:"rate_limit"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTDuration      time.Duration `mapstructure:"jwt_duration"`
	OperatorUser     string        `mapstructure:"operator_user"`
	OperatorPassHash string        `mapstructure:"operator_pass_hash"`
	DefaultLimit     int           `mapstructure:"default_limit"`
	MaxLimit         int           `mapstructure:"max_limit"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
	LedgerSize int `mapstructure:"ledger_size"`
}
