package storage

import (
	"context"
	"fmt"
)

// Uploader pushes a local file to object storage
type Uploader interface {
	// Upload stores the file at localPath under key. Failures are returned
	// as *UploadError.
	Upload(ctx context.Context, localPath, key string) error
}

// UploadError is returned when a file could not be stored remotely
type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s to bucket %s: %v", e.Key, e.Bucket, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
