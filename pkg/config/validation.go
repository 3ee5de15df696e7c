package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
)

// Validate validates the configuration and returns every problem found,
// joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}

	errs = append(errs, c.Store.validate()...)

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 || c.HTTP.IdleTimeout < 0 {
		errs = append(errs, errors.New("http timeouts must not be negative"))
	}
	if c.HTTP.RequestTimeout < 0 || c.HTTP.MaxRequestSize < 0 {
		errs = append(errs, errors.New("http.request_timeout and http.max_request_size must not be negative"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.Observability.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_level: %s (must be one of: %v)", c.Observability.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, strings.ToLower(c.Observability.LogFormat)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_format: %s (must be one of: %v)", c.Observability.LogFormat, validLogFormats))
	}
	if c.Observability.MetricsEnabled && !strings.HasPrefix(c.Observability.MetricsPath, "/") {
		errs = append(errs, errors.New("observability.metrics_path must start with /"))
	}
	if c.Observability.TracingEnabled {
		if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
			errs = append(errs, fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1, got %v", c.Observability.TracingSampleRate))
		}
		if strings.TrimSpace(c.Observability.TracingEndpoint) == "" {
			errs = append(errs, errors.New("observability.tracing_endpoint is required when tracing is enabled"))
		}
	}

	return errors.Join(errs...)
}

// validate checks only the block selected by Type.
func (s StoreConfig) validate() []error {
	var errs []error
	switch s.Type {
	case StoreTypeSQLite:
		if s.SQLite.BusyTimeout < 0 {
			errs = append(errs, errors.New("store.sqlite.busy_timeout must not be negative"))
		}
	case StoreTypePostgres:
		errs = append(errs, s.Postgres.validate("store.postgres")...)
	case StoreTypeMySQL:
		errs = append(errs, s.MySQL.validate("store.mysql")...)
	case StoreTypeRedis:
		if s.Redis.URL == "" {
			errs = append(errs, errors.New("store.redis.url is required"))
		}
	case StoreTypeMongoDB:
		if s.MongoDB.URL == "" {
			errs = append(errs, errors.New("store.mongodb.url is required"))
		}
		if s.MongoDB.Database == "" {
			errs = append(errs, errors.New("store.mongodb.database is required"))
		}
	case StoreTypeDynamoDB:
		if s.DynamoDB.Region == "" {
			errs = append(errs, errors.New("store.dynamodb.region is required"))
		}
	case StoreTypeS3:
		if s.S3.Region == "" {
			errs = append(errs, errors.New("store.s3.region is required"))
		}
		if s.S3.Bucket == "" {
			errs = append(errs, errors.New("store.s3.bucket is required"))
		}
	default:
		return append(errs, fmt.Errorf("invalid store.type: %q (must be one of: %v)", s.Type, StoreTypes))
	}
	if s.Breaker.Enabled {
		if s.Breaker.MaxFailures < 1 {
			errs = append(errs, fmt.Errorf("store.breaker.max_failures must be at least 1, got %d", s.Breaker.MaxFailures))
		}
		if s.Breaker.OpenTimeout <= 0 {
			errs = append(errs, errors.New("store.breaker.open_timeout must be positive"))
		}
	}
	return errs
}

func (c SQLConfig) validate(prefix string) []error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, fmt.Errorf("%s.url is required", prefix))
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		errs = append(errs, fmt.Errorf("%s pool sizes must not be negative", prefix))
	}
	if c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns {
		errs = append(errs, fmt.Errorf("%s.max_idle_conns (%d) must not exceed max_open_conns (%d)", prefix, c.MaxIdleConns, c.MaxOpenConns))
	}
	return errs
}
