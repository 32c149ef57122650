package storage

import (
	"context"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
)

// ObjectInfo represents metadata for a stored report.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations report export needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// New returns a MinIO/S3 client when storage is enabled and a local directory
// store rooted at exportDir otherwise.
func New(ctx context.Context, cfg config.StorageConfig, exportDir string) (ObjectStorage, error) {
	if !cfg.Enabled {
		return NewLocalStorage(exportDir)
	}
	return NewMinioClient(ctx, cfg)
}
