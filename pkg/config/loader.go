package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile         string
	envPrefix          string
	serviceNameDefault string
	flags              *pflag.FlagSet
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"store":       "store.type",
	"sqlite-file": "store.sqlite.file_name",
	"table":       "store.sqlite.table_name",
	"http-port":   "http.port",
	"log-level":   "observability.log_level",
	"log-format":  "observability.log_format",
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "APP")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// WithServiceNameDefault sets the default service.name used when no config/env override is provided.
func (l *ViperLoader) WithServiceNameDefault(serviceName string) *ViperLoader {
	if l == nil {
		return l
	}
	l.serviceNameDefault = strings.TrimSpace(serviceName)
	return l
}

// WithFlags binds the known command line flags found in flags. A flag that
// was set explicitly wins over environment, file and defaults.
func (l *ViperLoader) WithFlags(flags *pflag.FlagSet) *ViperLoader {
	if l == nil {
		return l
	}
	l.flags = flags
	return l
}

// Load loads configuration with precedence: flags > ENV > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	// Start with defaults
	defaults := DefaultConfig()
	l.setDefaults(v, defaults)

	// Read config file if provided
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	if err := l.bindFlags(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate normalizes cfg and validates it.
func (l *ViperLoader) Validate(cfg *Config) error {
	cfg.Store.Type = strings.ToLower(strings.TrimSpace(cfg.Store.Type))
	return cfg.Validate()
}

func (l *ViperLoader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := l.flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	// Service
	v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	// Store
	v.BindEnv("store.type", l.prefixedEnv("STORE_TYPE"))

	// SQLite
	v.BindEnv("store.sqlite.file_name", l.prefixedEnv("SQLITE_FILE_NAME"))
	v.BindEnv("store.sqlite.table_name", l.prefixedEnv("SQLITE_TABLE_NAME"))
	v.BindEnv("store.sqlite.busy_timeout", l.prefixedEnv("SQLITE_BUSY_TIMEOUT"))
	v.BindEnv("store.sqlite.query_timeout", l.prefixedEnv("SQLITE_QUERY_TIMEOUT"))

	// PostgreSQL
	v.BindEnv("store.postgres.url", l.prefixedEnv("POSTGRES_URL"))
	v.BindEnv("store.postgres.table_name", l.prefixedEnv("POSTGRES_TABLE_NAME"))
	v.BindEnv("store.postgres.max_open_conns", l.prefixedEnv("POSTGRES_MAX_OPEN_CONNS"))
	v.BindEnv("store.postgres.max_idle_conns", l.prefixedEnv("POSTGRES_MAX_IDLE_CONNS"))
	v.BindEnv("store.postgres.conn_max_lifetime", l.prefixedEnv("POSTGRES_CONN_MAX_LIFETIME"))
	v.BindEnv("store.postgres.conn_max_idle_time", l.prefixedEnv("POSTGRES_CONN_MAX_IDLE_TIME"))
	v.BindEnv("store.postgres.query_timeout", l.prefixedEnv("POSTGRES_QUERY_TIMEOUT"))

	// MySQL
	v.BindEnv("store.mysql.url", l.prefixedEnv("MYSQL_URL"))
	v.BindEnv("store.mysql.table_name", l.prefixedEnv("MYSQL_TABLE_NAME"))
	v.BindEnv("store.mysql.max_open_conns", l.prefixedEnv("MYSQL_MAX_OPEN_CONNS"))
	v.BindEnv("store.mysql.max_idle_conns", l.prefixedEnv("MYSQL_MAX_IDLE_CONNS"))
	v.BindEnv("store.mysql.conn_max_lifetime", l.prefixedEnv("MYSQL_CONN_MAX_LIFETIME"))
	v.BindEnv("store.mysql.conn_max_idle_time", l.prefixedEnv("MYSQL_CONN_MAX_IDLE_TIME"))
	v.BindEnv("store.mysql.query_timeout", l.prefixedEnv("MYSQL_QUERY_TIMEOUT"))

	// Redis
	v.BindEnv("store.redis.url", l.prefixedEnv("REDIS_URL"))
	v.BindEnv("store.redis.key", l.prefixedEnv("REDIS_KEY"))
	v.BindEnv("store.redis.max_conns", l.prefixedEnv("REDIS_MAX_CONNS"))
	v.BindEnv("store.redis.operation_timeout", l.prefixedEnv("REDIS_OPERATION_TIMEOUT"))

	// MongoDB
	v.BindEnv("store.mongodb.url", l.prefixedEnv("MONGODB_URL"))
	v.BindEnv("store.mongodb.database", l.prefixedEnv("MONGODB_DATABASE"))
	v.BindEnv("store.mongodb.collection", l.prefixedEnv("MONGODB_COLLECTION"))
	v.BindEnv("store.mongodb.connect_timeout", l.prefixedEnv("MONGODB_CONNECT_TIMEOUT"))
	v.BindEnv("store.mongodb.operation_timeout", l.prefixedEnv("MONGODB_OPERATION_TIMEOUT"))

	// DynamoDB
	v.BindEnv("store.dynamodb.region", l.prefixedEnv("DYNAMODB_REGION"), "AWS_REGION")
	v.BindEnv("store.dynamodb.endpoint", l.prefixedEnv("DYNAMODB_ENDPOINT"))
	v.BindEnv("store.dynamodb.access_key_id", l.prefixedEnv("DYNAMODB_ACCESS_KEY_ID"))
	v.BindEnv("store.dynamodb.secret_access_key", l.prefixedEnv("DYNAMODB_SECRET_ACCESS_KEY"))
	v.BindEnv("store.dynamodb.session_token", l.prefixedEnv("DYNAMODB_SESSION_TOKEN"))
	v.BindEnv("store.dynamodb.table_name", l.prefixedEnv("DYNAMODB_TABLE_NAME"))
	v.BindEnv("store.dynamodb.operation_timeout", l.prefixedEnv("DYNAMODB_OPERATION_TIMEOUT"))
	v.BindEnv("store.dynamodb.table_wait_timeout", l.prefixedEnv("DYNAMODB_TABLE_WAIT_TIMEOUT"))

	// S3
	v.BindEnv("store.s3.region", l.prefixedEnv("S3_REGION"), "AWS_REGION")
	v.BindEnv("store.s3.endpoint", l.prefixedEnv("S3_ENDPOINT"))
	v.BindEnv("store.s3.access_key_id", l.prefixedEnv("S3_ACCESS_KEY_ID"))
	v.BindEnv("store.s3.secret_access_key", l.prefixedEnv("S3_SECRET_ACCESS_KEY"))
	v.BindEnv("store.s3.session_token", l.prefixedEnv("S3_SESSION_TOKEN"))
	v.BindEnv("store.s3.bucket", l.prefixedEnv("S3_BUCKET"))
	v.BindEnv("store.s3.key", l.prefixedEnv("S3_KEY"))
	v.BindEnv("store.s3.use_path_style", l.prefixedEnv("S3_USE_PATH_STYLE"))
	v.BindEnv("store.s3.operation_timeout", l.prefixedEnv("S3_OPERATION_TIMEOUT"))

	// Breaker
	v.BindEnv("store.breaker.enabled", l.prefixedEnv("BREAKER_ENABLED"))
	v.BindEnv("store.breaker.max_failures", l.prefixedEnv("BREAKER_MAX_FAILURES"))
	v.BindEnv("store.breaker.open_timeout", l.prefixedEnv("BREAKER_OPEN_TIMEOUT"))

	// HTTP
	v.BindEnv("http.port", l.prefixedEnv("HTTP_PORT"))
	v.BindEnv("http.read_timeout", l.prefixedEnv("HTTP_READ_TIMEOUT"))
	v.BindEnv("http.write_timeout", l.prefixedEnv("HTTP_WRITE_TIMEOUT"))
	v.BindEnv("http.idle_timeout", l.prefixedEnv("HTTP_IDLE_TIMEOUT"))
	v.BindEnv("http.shutdown_timeout", l.prefixedEnv("HTTP_SHUTDOWN_TIMEOUT"))
	v.BindEnv("http.request_timeout", l.prefixedEnv("HTTP_REQUEST_TIMEOUT"))
	v.BindEnv("http.max_request_size", l.prefixedEnv("HTTP_MAX_REQUEST_SIZE"))

	// Observability
	v.BindEnv("observability.log_level", l.prefixedEnv("LOG_LEVEL"))
	v.BindEnv("observability.log_format", l.prefixedEnv("LOG_FORMAT"))
	v.BindEnv("observability.metrics_enabled", l.prefixedEnv("METRICS_ENABLED"))
	v.BindEnv("observability.metrics_path", l.prefixedEnv("METRICS_PATH"))
	v.BindEnv("observability.tracing_enabled", l.prefixedEnv("TRACING_ENABLED"))
	v.BindEnv("observability.tracing_sample_rate", l.prefixedEnv("TRACING_SAMPLE_RATE"))
	v.BindEnv("observability.tracing_endpoint", l.prefixedEnv("TRACING_ENDPOINT"))
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = "APP"
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

func (l *ViperLoader) defaultServiceName(fallback string) string {
	if l != nil {
		if configured := strings.TrimSpace(l.serviceNameDefault); configured != "" {
			return configured
		}
	}
	return strings.TrimSpace(fallback)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", l.defaultServiceName(cfg.Service.Name))
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("store.type", cfg.Store.Type)

	// SQLite defaults
	v.SetDefault("store.sqlite.file_name", cfg.Store.SQLite.FileName)
	v.SetDefault("store.sqlite.table_name", cfg.Store.SQLite.TableName)
	v.SetDefault("store.sqlite.busy_timeout", cfg.Store.SQLite.BusyTimeout)
	v.SetDefault("store.sqlite.query_timeout", cfg.Store.SQLite.QueryTimeout)

	// SQL server defaults
	for key, sqlCfg := range map[string]SQLConfig{"postgres": cfg.Store.Postgres, "mysql": cfg.Store.MySQL} {
		prefix := "store." + key + "."
		v.SetDefault(prefix+"url", sqlCfg.URL)
		v.SetDefault(prefix+"table_name", sqlCfg.TableName)
		v.SetDefault(prefix+"max_open_conns", sqlCfg.MaxOpenConns)
		v.SetDefault(prefix+"max_idle_conns", sqlCfg.MaxIdleConns)
		v.SetDefault(prefix+"conn_max_lifetime", sqlCfg.ConnMaxLifetime)
		v.SetDefault(prefix+"conn_max_idle_time", sqlCfg.ConnMaxIdleTime)
		v.SetDefault(prefix+"query_timeout", sqlCfg.QueryTimeout)
	}

	// Redis defaults
	v.SetDefault("store.redis.url", cfg.Store.Redis.URL)
	v.SetDefault("store.redis.key", cfg.Store.Redis.Key)
	v.SetDefault("store.redis.max_conns", cfg.Store.Redis.MaxConns)
	v.SetDefault("store.redis.operation_timeout", cfg.Store.Redis.OperationTimeout)

	// MongoDB defaults
	v.SetDefault("store.mongodb.url", cfg.Store.MongoDB.URL)
	v.SetDefault("store.mongodb.database", cfg.Store.MongoDB.Database)
	v.SetDefault("store.mongodb.collection", cfg.Store.MongoDB.Collection)
	v.SetDefault("store.mongodb.connect_timeout", cfg.Store.MongoDB.ConnectTimeout)
	v.SetDefault("store.mongodb.operation_timeout", cfg.Store.MongoDB.OperationTimeout)

	// DynamoDB defaults
	v.SetDefault("store.dynamodb.region", cfg.Store.DynamoDB.Region)
	v.SetDefault("store.dynamodb.endpoint", cfg.Store.DynamoDB.Endpoint)
	v.SetDefault("store.dynamodb.table_name", cfg.Store.DynamoDB.TableName)
	v.SetDefault("store.dynamodb.operation_timeout", cfg.Store.DynamoDB.OperationTimeout)
	v.SetDefault("store.dynamodb.table_wait_timeout", cfg.Store.DynamoDB.TableWaitTimeout)

	// S3 defaults
	v.SetDefault("store.s3.region", cfg.Store.S3.Region)
	v.SetDefault("store.s3.endpoint", cfg.Store.S3.Endpoint)
	v.SetDefault("store.s3.bucket", cfg.Store.S3.Bucket)
	v.SetDefault("store.s3.key", cfg.Store.S3.Key)
	v.SetDefault("store.s3.use_path_style", cfg.Store.S3.UsePathStyle)
	v.SetDefault("store.s3.operation_timeout", cfg.Store.S3.OperationTimeout)

	// Breaker defaults
	v.SetDefault("store.breaker.enabled", cfg.Store.Breaker.Enabled)
	v.SetDefault("store.breaker.max_failures", cfg.Store.Breaker.MaxFailures)
	v.SetDefault("store.breaker.open_timeout", cfg.Store.Breaker.OpenTimeout)

	// HTTP defaults
	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)
	v.SetDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout)
	v.SetDefault("http.request_timeout", cfg.HTTP.RequestTimeout)
	v.SetDefault("http.max_request_size", cfg.HTTP.MaxRequestSize)

	// Observability defaults
	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.metrics_enabled", cfg.Observability.MetricsEnabled)
	v.SetDefault("observability.metrics_path", cfg.Observability.MetricsPath)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)
}
