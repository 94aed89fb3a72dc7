package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation (only when persistence is on)
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}
	for i, shard := range c.Database.Shards {
		if shard.ID == "" {
			errs = append(errs, fmt.Errorf("database.shards[%d].id is required", i))
		}
		if shard.DSN == "" {
			errs = append(errs, fmt.Errorf("database.shards[%d].dsn is required", i))
		}
	}

	// Collector validation
	if c.Collector.Timeout <= 0 {
		errs = append(errs, errors.New("collector.timeout must be positive"))
	}

	// Scaling validation
	if len(c.Scaling.Services) == 0 {
		errs = append(errs, errors.New("scaling.services must list at least one service"))
	}
	if c.Scaling.TickInterval <= 0 {
		errs = append(errs, errors.New("scaling.tick_interval must be positive"))
	}
	if c.Collector.Timeout >= c.Scaling.TickInterval {
		errs = append(errs, errors.New("collector.timeout must be less than scaling.tick_interval"))
	}
	if c.Scaling.ExecuteTimeout < 0 {
		errs = append(errs, errors.New("scaling.execute_timeout must not be negative"))
	}
	if c.Scaling.TickInterval > 0 && c.Scaling.ExecuteTimeout >= c.Scaling.TickInterval {
		errs = append(errs, errors.New("scaling.execute_timeout must be less than scaling.tick_interval"))
	}
	if err := c.Scaling.Thresholds().Validate(); err != nil {
		errs = append(errs, err)
	}

	// Orchestrator validation
	validTypes := map[string]bool{"docker": true, "simulator": true}
	if !validTypes[c.Orchestrator.Type] {
		errs = append(errs, errors.New("orchestrator.type must be one of: docker, simulator"))
	}
	if c.Orchestrator.Type == "docker" && c.Orchestrator.Endpoint == "" {
		errs = append(errs, errors.New("orchestrator.endpoint is required for the docker backend"))
	}
	if c.Orchestrator.RequestTimeout <= 0 {
		errs = append(errs, errors.New("orchestrator.request_timeout must be positive"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}
	if c.App.Mode == "production" && c.API.OperatorPassHash == "" {
		errs = append(errs, errors.New("api.operator_pass_hash is required in production"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
