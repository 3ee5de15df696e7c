// Package s3 implements the counter driver on an S3 object holding the
// counter as a decimal string.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awss3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

// DefaultKey is the counter object key used when none is configured.
const DefaultKey = "values"

// Config defines S3 counter configuration.
type Config struct {
	Bucket           string
	Key              string
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	SessionToken     string
	UsePathStyle     bool
	OperationTimeout time.Duration
}

// Validate reports configuration errors that would make Connect fail.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Bucket) == "" {
		errs = append(errs, errors.New("s3 bucket is required"))
	}
	if strings.TrimSpace(c.Region) == "" {
		errs = append(errs, errors.New("aws region is required"))
	}
	return errors.Join(errs...)
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Key) == "" {
		c.Key = DefaultKey
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 10 * time.Second
	}
	return c
}

type s3API interface {
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Conn is an S3 counter connection.
type Conn struct {
	client  s3API
	bucket  string
	key     string
	timeout time.Duration
}

func (c *Conn) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Driver opens S3 counter connections.
type Driver struct {
	logger logger.Logger
}

// NewDriver creates an S3 driver.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{logger: log}
}

// Connect builds the client and verifies the bucket is accessible.
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

	clientOptions := make([]func(*awss3.Options), 0, 2)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		clientOptions = append(clientOptions, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	conn := &Conn{
		client:  awss3.NewFromConfig(awsCfg, clientOptions...),
		bucket:  cfg.Bucket,
		key:     cfg.Key,
		timeout: cfg.OperationTimeout,
	}
	if err := d.Ping(ctx, conn); err != nil {
		return nil, err
	}

	d.logger.Info("S3 connection established", "bucket", cfg.Bucket, "key", cfg.Key, "region", cfg.Region, "endpoint", cfg.Endpoint)
	return conn, nil
}

// Init writes "0" unless the object already exists.
func (d *Driver) Init(ctx context.Context, c *Conn) error {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	_, err := c.client.PutObject(opCtx, &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key),
		Body:        strings.NewReader("0"),
		ContentType: aws.String("text/plain"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil && !IsPreconditionFailed(err) {
		return fmt.Errorf("failed to initialize counter object %q: %w", c.key, err)
	}
	return nil
}

// Get downloads and parses the counter object.
func (d *Driver) Get(ctx context.Context, c *Conn) (int64, error) {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	resp, err := c.client.GetObject(opCtx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key),
	})
	if err != nil {
		if IsNotFound(err) {
			return 0, adapter.ErrNotInitialized
		}
		return 0, fmt.Errorf("failed to download counter object %q: %w", c.key, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter object %q: %w", c.key, err)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(string(payload)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter object %q is not an integer: %w", c.key, err)
	}
	return value, nil
}

// Set reads the counter and writes it back incremented by one. The value
// argument is ignored. Concurrent writers may lose updates.
func (d *Driver) Set(ctx context.Context, c *Conn, _ int64) error {
	current, err := d.Get(ctx, c)
	if err != nil {
		return err
	}

	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	_, err = c.client.PutObject(opCtx, &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key),
		Body:        bytes.NewReader([]byte(strconv.FormatInt(current+1, 10))),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("failed to write counter object %q: %w", c.key, err)
	}
	return nil
}

// Dispose releases the connection. The SDK client holds no resources that
// need closing.
func (d *Driver) Dispose(_ context.Context, c *Conn) error {
	d.logger.Info("S3 connection closed successfully", "bucket", c.bucket)
	return nil
}

// Ping verifies that the configured bucket is accessible.
func (d *Driver) Ping(ctx context.Context, c *Conn) error {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	if _, err := c.client.HeadBucket(opCtx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("s3 ping failed: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	var nsk *awss3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *awss3types.NotFound
	return errors.As(err, &nf)
}

// IsPreconditionFailed reports whether a conditional write was rejected.
func IsPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "PreconditionFailed"
	}
	return false
}

// Adapter is a lifecycle-wrapped S3 counter.
type Adapter = adapter.Adapter[*Conn, Config]

// NewS3Adapter creates a counter that connects to S3 on first use.
func NewS3Adapter(cfg Config, log logger.Logger, opts ...adapter.Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []adapter.Option{adapter.WithName("s3"), adapter.WithLogger(log)}
	return adapter.New[*Conn, Config](NewDriver(log), cfg.withDefaults(), append(base, opts...)...), nil
}
