// Package dynamodb implements the counter driver on DynamoDB. The counter is
// one item {id: "counter", value: n} in the configured table.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

const (
	// DefaultTableName is used when no table is configured.
	DefaultTableName = "values"

	partitionKey = "id"
	valueAttr    = "value"
	counterID    = "counter"
)

// Config holds DynamoDB counter configuration.
type Config struct {
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	SessionToken     string
	TableName        string
	OperationTimeout time.Duration
	// TableWaitTimeout bounds how long Init waits for a created table to
	// become active.
	TableWaitTimeout time.Duration
}

// Validate reports configuration errors that would make Connect fail.
func (c Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("aws region is required")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 5 * time.Second
	}
	if c.TableWaitTimeout <= 0 {
		c.TableWaitTimeout = 2 * time.Minute
	}
	return c
}

type dynamoAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Conn is a DynamoDB counter connection.
type Conn struct {
	client      dynamoAPI
	table       string
	timeout     time.Duration
	waitTimeout time.Duration
}

// Table returns the counter table name.
func (c *Conn) Table() string {
	return c.table
}

func (c *Conn) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Conn) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		partitionKey: &types.AttributeValueMemberS{Value: counterID},
	}
}

// Driver opens DynamoDB counter connections.
type Driver struct {
	logger logger.Logger
}

// NewDriver creates a DynamoDB driver.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{logger: log}
}

// Cosa fa: costruisce il client DynamoDB (AWS SDK v2) con supporto endpoint custom.
// Cosa NON fa: non crea la tabella; lo fa Init.
// Esempio minimo: conn, err := dynamodb.NewDriver(log).Connect(ctx, cfg)
func (d *Driver) Connect(ctx context.Context, cfg Config) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var opts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	d.logger.Info("DynamoDB connection established", "region", cfg.Region, "endpoint", cfg.Endpoint, "table", cfg.TableName)
	return &Conn{
		client:      dynamodb.NewFromConfig(awsCfg, opts...),
		table:       cfg.TableName,
		timeout:     cfg.OperationTimeout,
		waitTimeout: cfg.TableWaitTimeout,
	}, nil
}

// Init creates the table when missing, waits for it to become active and
// puts the counter item with value 0 unless it already exists.
func (d *Driver) Init(ctx context.Context, c *Conn) error {
	if err := d.ensureTable(ctx, c); err != nil {
		return err
	}

	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	_, err := c.client.PutItem(opCtx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			partitionKey: &types.AttributeValueMemberS{Value: counterID},
			valueAttr:    &types.AttributeValueMemberN{Value: "0"},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": partitionKey},
	})
	if err != nil && !IsConditionalCheckFailed(err) {
		return storeError("failed to seed dynamodb counter", err)
	}
	return nil
}

func (d *Driver) ensureTable(ctx context.Context, c *Conn) error {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	_, err := c.client.CreateTable(opCtx, &dynamodb.CreateTableInput{
		TableName: aws.String(c.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(partitionKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(partitionKey), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	switch {
	case err == nil:
		d.logger.Info("DynamoDB counter table created", "table", c.table)
	case IsResourceInUse(err):
	default:
		return storeError("failed to create dynamodb table "+c.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(c.client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = time.Second
		o.MaxDelay = 5 * time.Second
	})
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.table)}, c.waitTimeout); err != nil {
		return fmt.Errorf("dynamodb table %s did not become active: %w", c.table, err)
	}
	return nil
}

// Get reads the counter item with a consistent read.
func (d *Driver) Get(ctx context.Context, c *Conn) (int64, error) {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	out, err := c.client.GetItem(opCtx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            c.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		if IsResourceNotFound(err) {
			return 0, adapter.ErrNotInitialized
		}
		return 0, storeError("failed to read dynamodb counter", err)
	}
	if out.Item == nil {
		return 0, adapter.ErrNotInitialized
	}

	attr, ok := out.Item[valueAttr].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamodb counter attribute %q is not a number", valueAttr)
	}
	value, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid dynamodb counter value %q: %w", attr.Value, err)
	}
	return value, nil
}

// Set atomically adds 1 to the counter. The value argument is ignored.
func (d *Driver) Set(ctx context.Context, c *Conn, _ int64) error {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	_, err := c.client.UpdateItem(opCtx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.table),
		Key:                       c.key(),
		UpdateExpression:          aws.String("ADD #v :one"),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  map[string]string{"#v": valueAttr, "#id": partitionKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
	})
	if err != nil {
		if IsConditionalCheckFailed(err) || IsResourceNotFound(err) {
			return adapter.ErrNotInitialized
		}
		return storeError("failed to increment dynamodb counter", err)
	}
	return nil
}

// Dispose releases the connection. The SDK client holds no resources that
// need closing.
func (d *Driver) Dispose(_ context.Context, c *Conn) error {
	d.logger.Info("DynamoDB connection closed successfully", "table", c.table)
	return nil
}

// Ping checks the counter table is reachable.
func (d *Driver) Ping(ctx context.Context, c *Conn) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := c.client.DescribeTable(hcCtx, &dynamodb.DescribeTableInput{TableName: aws.String(c.table)}); err != nil {
		return fmt.Errorf("dynamodb health check failed: %w", err)
	}
	return nil
}

// storeError wraps err with msg, marking throttling with adapter.ErrThrottled.
func storeError(msg string, err error) error {
	if IsThrottlingError(err) {
		return fmt.Errorf("%s: %w: %w", msg, adapter.ErrThrottled, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// IsThrottlingError reports whether err is a provisioned throughput,
// account request limit or generic throttling error.
func IsThrottlingError(err error) bool {
	if err == nil {
		return false
	}
	var pte *types.ProvisionedThroughputExceededException
	var rle *types.RequestLimitExceeded
	if errors.As(err, &pte) || errors.As(err, &rle) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ThrottlingException"
}

// IsConditionalCheckFailed reports whether a condition expression rejected the write.
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// IsResourceInUse reports whether the table already exists or is being created.
func IsResourceInUse(err error) bool {
	var riu *types.ResourceInUseException
	return errors.As(err, &riu)
}

// IsResourceNotFound reports whether the table does not exist.
func IsResourceNotFound(err error) bool {
	var rnf *types.ResourceNotFoundException
	return errors.As(err, &rnf)
}

// Adapter is a lifecycle-wrapped DynamoDB counter.
type Adapter = adapter.Adapter[*Conn, Config]

// NewDynamoDBAdapter creates a counter that connects to DynamoDB on first use.
func NewDynamoDBAdapter(cfg Config, log logger.Logger, opts ...adapter.Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []adapter.Option{adapter.WithName("dynamodb"), adapter.WithLogger(log)}
	return adapter.New[*Conn, Config](NewDriver(log), cfg.withDefaults(), append(base, opts...)...), nil
}
