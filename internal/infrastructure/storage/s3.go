package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/localmart/marketplace-service/internal/domain"
)

// S3Options configures the blob store. Endpoint is set for MinIO/R2 and left
// empty for real AWS.
type S3Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
	CDNBaseURL      string
}

// S3Client implements media.ObjectStorage on one bucket; raw/ and derived/
// prefixes in the object keys keep originals and outputs apart.
type S3Client struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	opts      S3Options
	log       zerolog.Logger
}

func NewS3Client(ctx context.Context, opts S3Options, log zerolog.Logger) (*S3Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.Endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               opts.Endpoint,
				HostnameImmutable: true,
			}, nil
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(customResolver))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
	})

	return &S3Client{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		opts:      opts,
		log:       log,
	}, nil
}

// PresignPut hands the browser a time-limited upload URL. The content type is
// part of the signature so the client cannot smuggle a different one.
func (c *S3Client) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", domain.ErrStorageUnavailable(err)
	}
	return req.URL, nil
}

func (c *S3Client) ObjectExists(ctx context.Context, key string) (bool, int64, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, 0, nil
		}
		return false, 0, domain.ErrStorageUnavailable(err)
	}
	return true, aws.ToInt64(out.ContentLength), nil
}

func (c *S3Client) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, domain.ErrStorageUnavailable(err)
	}
	return out.Body, nil
}

func (c *S3Client) PutObject(ctx context.Context, key string, body io.Reader, contentType string, size int64) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := c.client.PutObject(ctx, in); err != nil {
		return domain.ErrStorageUnavailable(err)
	}
	return nil
}

func (c *S3Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return domain.ErrStorageUnavailable(err)
	}
	return nil
}

// PublicURL builds the serving URL for a derived object. With no CDN the
// path-style endpoint URL works for local MinIO.
func (c *S3Client) PublicURL(key string) string {
	if c.opts.CDNBaseURL != "" {
		return strings.TrimRight(c.opts.CDNBaseURL, "/") + "/" + key
	}
	if c.opts.Endpoint != "" {
		return strings.TrimRight(c.opts.Endpoint, "/") + "/" + c.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.opts.Region, key)
}

// EnsureBucket creates the bucket when missing. Dev convenience for MinIO;
// production buckets are provisioned out of band.
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil
	}
	c.log.Info().Str("bucket", c.bucket).Msg("creating bucket")
	if _, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	}); err != nil {
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}
	return nil
}
