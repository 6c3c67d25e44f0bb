// internal/adapters/storage/s3.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ammerola/stockledger/internal/core/ports"
)

// MaxDownloadSize bounds objects read back into memory. Uploads are capped
// far lower at the API, so anything larger was not written by the ledger.
const MaxDownloadSize = 64 << 20

// ErrObjectTooLarge is returned by Download for objects over MaxDownloadSize
var ErrObjectTooLarge = errors.New("object exceeds download limit")

// S3Storage keeps delivery note uploads and sales exports in a bucket
type S3Storage struct {
	client     *s3.Client
	presign    *s3.PresignClient
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	logger     *slog.Logger
}

var _ ports.ObjectStorage = (*S3Storage)(nil)

// S3Config holds S3 configuration. Endpoint and UsePathStyle target MinIO
// or LocalStack.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
}

// NewS3Storage connects to the bucket. Against a custom endpoint a missing
// bucket is created; against AWS it must already exist.
func NewS3Storage(ctx context.Context, cfg *S3Config, logger *slog.Logger) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	s := &S3Storage{
		client:     client,
		presign:    s3.NewPresignClient(client),
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		bucket:     cfg.Bucket,
		logger:     logger.With(slog.String("storage", "s3")),
	}

	if err := s.checkBucket(ctx, cfg.Region, cfg.Endpoint != ""); err != nil {
		return nil, err
	}

	logger.Info("S3 storage initialized",
		slog.String("bucket", cfg.Bucket),
		slog.String("region", cfg.Region),
		slog.Bool("custom_endpoint", cfg.Endpoint != ""))

	return s, nil
}

func (s *S3Storage) checkBucket(ctx context.Context, region string, create bool) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !create {
		return fmt.Errorf("bucket %s is not accessible: %w", s.bucket, err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit location constraint
	if region != "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("created S3 bucket", slog.String("bucket", s.bucket))
	return nil
}

// Upload stores data under key and returns its location
func (s *S3Storage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentTypeFor(key, contentType)),
		Metadata: map[string]string{
			"kind":        objectKind(key),
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.InfoContext(ctx, "object stored",
		slog.String("key", key),
		slog.String("kind", objectKind(key)))

	return result.Location, nil
}

// Download reads an object into memory
func (s *S3Storage) Download(ctx context.Context, key string) ([]byte, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if head.ContentLength > MaxDownloadSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrObjectTooLarge, key, head.ContentLength)
	}

	buf := manager.NewWriteAtBuffer(make([]byte, 0, head.ContentLength))
	if _, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}

	return buf.Bytes(), nil
}

// Delete removes an object. Deleting a missing key succeeds.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	s.logger.InfoContext(ctx, "object deleted", slog.String("key", key))
	return nil
}

// GetPresignedURL returns a time limited download link. The link names the
// file after the last key segment so browsers save exports sensibly.
func (s *S3Storage) GetPresignedURL(ctx context.Context, key string, duration time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(attachment(key)),
	}, func(o *s3.PresignOptions) {
		o.Expires = duration
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// List returns the objects under prefix, skipping folder markers
func (s *S3Storage) List(ctx context.Context, prefix string) ([]ports.StoredObject, error) {
	objects := make([]ports.StoredObject, 0)

	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, ports.StoredObject{
				Key:          key,
				Size:         obj.Size,
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return objects, nil
}

// objectKind labels a key by the top level folder it was written under
func objectKind(key string) string {
	if i := strings.Index(key, "/"); i > 0 {
		return key[:i]
	}
	return "other"
}

func contentTypeFor(key, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func attachment(key string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)})
}
