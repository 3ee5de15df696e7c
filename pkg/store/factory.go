package store

import (
	"fmt"
	"strings"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/config"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/store/dynamodb"
	"github.com/nimburion/lazycounter/pkg/store/mongodb"
	"github.com/nimburion/lazycounter/pkg/store/mysql"
	"github.com/nimburion/lazycounter/pkg/store/postgres"
	"github.com/nimburion/lazycounter/pkg/store/redis"
	"github.com/nimburion/lazycounter/pkg/store/s3"
	"github.com/nimburion/lazycounter/pkg/store/sqlite"
)

// Cosa fa: seleziona il driver in base a cfg.Type e crea l'adapter del contatore.
// Cosa NON fa: non apre connessioni; la prima Init/Get/Set si connette.
// Esempio minimo: counter, err := store.NewCounter(cfg.Store, log)
func NewCounter(cfg config.StoreConfig, log logger.Logger, opts ...adapter.Option) (Counter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", config.StoreTypeSQLite:
		return sqlite.NewSQLiteAdapter(sqlite.Config{
			FileName:     cfg.SQLite.FileName,
			TableName:    cfg.SQLite.TableName,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
			QueryTimeout: cfg.SQLite.QueryTimeout,
		}, log, opts...), nil
	case config.StoreTypePostgres:
		return counterOrError(postgres.NewPostgreSQLAdapter(postgres.Config{
			URL:             cfg.Postgres.URL,
			TableName:       cfg.Postgres.TableName,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
			QueryTimeout:    cfg.Postgres.QueryTimeout,
		}, log, opts...))
	case config.StoreTypeMySQL:
		return counterOrError(mysql.NewMySQLAdapter(mysql.Config{
			URL:             cfg.MySQL.URL,
			TableName:       cfg.MySQL.TableName,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			QueryTimeout:    cfg.MySQL.QueryTimeout,
		}, log, opts...))
	case config.StoreTypeRedis:
		return counterOrError(redis.NewRedisAdapter(redis.Config{
			URL:              cfg.Redis.URL,
			Key:              cfg.Redis.Key,
			MaxConns:         cfg.Redis.MaxConns,
			OperationTimeout: cfg.Redis.OperationTimeout,
		}, log, opts...))
	case config.StoreTypeMongoDB:
		return counterOrError(mongodb.NewMongoDBAdapter(mongodb.Config{
			URL:              cfg.MongoDB.URL,
			Database:         cfg.MongoDB.Database,
			Collection:       cfg.MongoDB.Collection,
			ConnectTimeout:   cfg.MongoDB.ConnectTimeout,
			OperationTimeout: cfg.MongoDB.OperationTimeout,
		}, log, opts...))
	case config.StoreTypeDynamoDB:
		return counterOrError(dynamodb.NewDynamoDBAdapter(dynamodb.Config{
			Region:           cfg.DynamoDB.Region,
			Endpoint:         cfg.DynamoDB.Endpoint,
			AccessKeyID:      cfg.DynamoDB.AccessKeyID,
			SecretAccessKey:  cfg.DynamoDB.SecretAccessKey,
			SessionToken:     cfg.DynamoDB.SessionToken,
			TableName:        cfg.DynamoDB.TableName,
			OperationTimeout: cfg.DynamoDB.OperationTimeout,
			TableWaitTimeout: cfg.DynamoDB.TableWaitTimeout,
		}, log, opts...))
	case config.StoreTypeS3:
		return counterOrError(s3.NewS3Adapter(s3.Config{
			Bucket:           cfg.S3.Bucket,
			Key:              cfg.S3.Key,
			Region:           cfg.S3.Region,
			Endpoint:         cfg.S3.Endpoint,
			AccessKeyID:      cfg.S3.AccessKeyID,
			SecretAccessKey:  cfg.S3.SecretAccessKey,
			SessionToken:     cfg.S3.SessionToken,
			UsePathStyle:     cfg.S3.UsePathStyle,
			OperationTimeout: cfg.S3.OperationTimeout,
		}, log, opts...))
	default:
		return nil, fmt.Errorf("unsupported store.type %q (supported: %s)", cfg.Type, strings.Join(config.StoreTypes, ", "))
	}
}

// counterOrError keeps a failed constructor from yielding a non-nil Counter
// that wraps a nil pointer.
func counterOrError(counter Counter, err error) (Counter, error) {
	if err != nil {
		return nil, err
	}
	return counter, nil
}
