package config

import "time"

// Store type constants
const (
	// StoreTypeSQLite represents the embedded SQLite store
	StoreTypeSQLite = "sqlite"
	// StoreTypePostgres represents PostgreSQL
	StoreTypePostgres = "postgres"
	// StoreTypeMySQL represents MySQL
	StoreTypeMySQL = "mysql"
	// StoreTypeRedis represents Redis
	StoreTypeRedis = "redis"
	// StoreTypeMongoDB represents MongoDB
	StoreTypeMongoDB = "mongodb"
	// StoreTypeDynamoDB represents AWS DynamoDB
	StoreTypeDynamoDB = "dynamodb"
	// StoreTypeS3 represents an S3 compatible object store
	StoreTypeS3 = "s3"
)

// StoreTypes lists every supported store type.
var StoreTypes = []string{
	StoreTypeSQLite,
	StoreTypePostgres,
	StoreTypeMySQL,
	StoreTypeRedis,
	StoreTypeMongoDB,
	StoreTypeDynamoDB,
	StoreTypeS3,
}

// Config is the root configuration structure for the counter service
type Config struct {
	Service       ServiceConfig       `mapstructure:"service" yaml:"service"`
	Store         StoreConfig         `mapstructure:"store" yaml:"store"`
	HTTP          HTTPConfig          `mapstructure:"http" yaml:"http"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// HTTPConfig configures the counter API server
type HTTPConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size" yaml:"max_request_size"`
}

// ObservabilityConfig configures logging, metrics, and tracing
type ObservabilityConfig struct {
	LogLevel          string  `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string  `mapstructure:"log_format" yaml:"log_format"` // json, text
	MetricsEnabled    bool    `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPath       string  `mapstructure:"metrics_path" yaml:"metrics_path"`
	TracingEnabled    bool    `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate" yaml:"tracing_sample_rate"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint" yaml:"tracing_endpoint"`
}

// StoreConfig selects and configures the backing store of the counter.
// Only the block matching Type is used.
type StoreConfig struct {
	Type     string         `mapstructure:"type" yaml:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres SQLConfig      `mapstructure:"postgres" yaml:"postgres"`
	MySQL    SQLConfig      `mapstructure:"mysql" yaml:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb" yaml:"mongodb"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb" yaml:"dynamodb"`
	S3       S3Config       `mapstructure:"s3" yaml:"s3"`
	Breaker  BreakerConfig  `mapstructure:"breaker" yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker placed in front of the store
// by the long running server.
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxFailures int           `mapstructure:"max_failures" yaml:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	FileName     string        `mapstructure:"file_name" yaml:"file_name"`
	TableName    string        `mapstructure:"table_name" yaml:"table_name"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// SQLConfig configures a networked SQL store (postgres, mysql).
type SQLConfig struct {
	URL             string        `mapstructure:"url" yaml:"url"`
	TableName       string        `mapstructure:"table_name" yaml:"table_name"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	URL              string        `mapstructure:"url" yaml:"url"`
	Key              string        `mapstructure:"key" yaml:"key"`
	MaxConns         int           `mapstructure:"max_conns" yaml:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// MongoDBConfig configures the MongoDB store.
type MongoDBConfig struct {
	URL              string        `mapstructure:"url" yaml:"url"`
	Database         string        `mapstructure:"database" yaml:"database"`
	Collection       string        `mapstructure:"collection" yaml:"collection"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// AWSConfig holds the credentials and endpoint shared by AWS backed stores.
// Empty credentials fall back to the default AWS credential chain.
type AWSConfig struct {
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token" yaml:"session_token"`
}

// DynamoDBConfig configures the DynamoDB store.
type DynamoDBConfig struct {
	AWSConfig        `mapstructure:",squash" yaml:",inline"`
	TableName        string        `mapstructure:"table_name" yaml:"table_name"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	TableWaitTimeout time.Duration `mapstructure:"table_wait_timeout" yaml:"table_wait_timeout"`
}

// S3Config configures the S3 store.
type S3Config struct {
	AWSConfig        `mapstructure:",squash" yaml:",inline"`
	Bucket           string        `mapstructure:"bucket" yaml:"bucket"`
	Key              string        `mapstructure:"key" yaml:"key"`
	UsePathStyle     bool          `mapstructure:"use_path_style" yaml:"use_path_style"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "counterd",
			Environment: "production",
		},
		Store: StoreConfig{
			Type: StoreTypeSQLite,
			SQLite: SQLiteConfig{
				FileName:     ":memory:",
				TableName:    "values",
				BusyTimeout:  5 * time.Second,
				QueryTimeout: 0,
			},
			Postgres: SQLConfig{
				TableName:       "values",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				ConnMaxIdleTime: 5 * time.Minute,
				QueryTimeout:    10 * time.Second,
			},
			MySQL: SQLConfig{
				TableName:       "values",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				ConnMaxIdleTime: 5 * time.Minute,
				QueryTimeout:    10 * time.Second,
			},
			Redis: RedisConfig{
				Key:              "values",
				MaxConns:         10,
				OperationTimeout: 5 * time.Second,
			},
			MongoDB: MongoDBConfig{
				Database:         "counter",
				Collection:       "values",
				ConnectTimeout:   10 * time.Second,
				OperationTimeout: 5 * time.Second,
			},
			DynamoDB: DynamoDBConfig{
				AWSConfig:        AWSConfig{Region: "us-east-1"},
				TableName:        "values",
				OperationTimeout: 5 * time.Second,
				TableWaitTimeout: 2 * time.Minute,
			},
			S3: S3Config{
				AWSConfig:        AWSConfig{Region: "us-east-1"},
				Key:              "values",
				OperationTimeout: 5 * time.Second,
			},
			Breaker: BreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			MaxRequestSize:  1 << 10,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			MetricsEnabled:    true,
			MetricsPath:       "/metrics",
			TracingEnabled:    false,
			TracingSampleRate: 0.1,
			TracingEndpoint:   "localhost:4317",
		},
	}
}

const redactedValue = "***"

// Redacted returns a copy of cfg with connection URLs and credentials masked.
func (c Config) Redacted() Config {
	out := c
	mask := func(v *string) {
		if *v != "" {
			*v = redactedValue
		}
	}
	mask(&out.Store.Postgres.URL)
	mask(&out.Store.MySQL.URL)
	mask(&out.Store.Redis.URL)
	mask(&out.Store.MongoDB.URL)
	for _, aws := range []*AWSConfig{&out.Store.DynamoDB.AWSConfig, &out.Store.S3.AWSConfig} {
		mask(&aws.AccessKeyID)
		mask(&aws.SecretAccessKey)
		mask(&aws.SessionToken)
	}
	return out
}
