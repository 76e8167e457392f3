package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	appconfig "github.com/shyim/db-auto-backup/internal/config"
	"github.com/shyim/db-auto-backup/internal/storage"
)

// Uploader implements storage.Uploader for S3-compatible backends
type Uploader struct {
	uploader *manager.Uploader
	bucket   string
}

var _ storage.Uploader = (*Uploader)(nil)

// New creates an uploader from the storage settings. The settings must be
// complete; callers check StorageConfig.Complete first.
func New(ctx context.Context, opts appconfig.StorageConfig) (*Uploader, error) {
	if missing := opts.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("S3 storage is missing %v", missing)
	}

	region := opts.Region
	if region == "" {
		region = appconfig.DefaultS3Region
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = opts.PathStyle
	})

	return &Uploader{
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
	}, nil
}

// Upload streams the local file to the bucket
func (u *Uploader) Upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return &storage.UploadError{Bucket: u.bucket, Key: key, Err: err}
	}
	defer file.Close()

	slog.Info("uploading backup", "file", localPath, "bucket", u.bucket, "key", key)

	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			slog.Debug("S3 API error", "code", apiErr.ErrorCode(), "message", apiErr.ErrorMessage())
		}
		return &storage.UploadError{Bucket: u.bucket, Key: key, Err: err}
	}

	return nil
}
