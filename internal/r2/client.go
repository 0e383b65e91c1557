package r2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configures a Client.
type Options struct {
	AccountID       string
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Client keeps each store entry as one JSON object in a Cloudflare R2 bucket.
type Client struct {
	s3Client   objectAPI
	bucketName string
	prefix     string
}

// NewClient creates an R2 client for the given account and bucket.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.AccountID == "" || opts.BucketName == "" || opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, errors.New("r2: account id, bucket and credentials are required")
	}

	// R2 endpoint format: https://<ACCOUNT_ID>.r2.cloudflarestorage.com
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(r2Resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	return newClient(s3.NewFromConfig(cfg), opts.BucketName, opts.Prefix), nil
}

func newClient(api objectAPI, bucket, prefix string) *Client {
	return &Client{s3Client: api, bucketName: bucket, prefix: prefix}
}

// ObjectKey returns the bucket key an entry is stored under.
func (c *Client) ObjectKey(key string) string {
	return path.Join(c.prefix, key+".json")
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(c.ObjectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get object from R2 (key: %s): %w", c.ObjectKey(key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read R2 object %s: %w", c.ObjectKey(key), err)
	}
	return data, true, nil
}

func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(c.ObjectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to R2 (key: %s): %w", c.ObjectKey(key), err)
	}
	return nil
}

// Delete removes the object. R2 treats deleting a missing key as success.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(c.ObjectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from R2 (key: %s): %w", c.ObjectKey(key), err)
	}
	return nil
}

func (c *Client) Close() error { return nil }
