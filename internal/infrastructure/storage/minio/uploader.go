// Package minio provides optional archival of exported reports to an
// S3-compatible object store. When disabled in configuration the export
// command simply skips the upload step.
package minio

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ipbench/ipsignal/internal/config"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// Uploader archives report files under a per-run prefix.
type Uploader interface {
	// UploadReport stores the local file under <runID>/<basename> in the
	// configured bucket and returns the object key.
	UploadReport(ctx context.Context, runID, localPath string) (string, error)
}

type uploader struct {
	client *minio.Client
	bucket string
	logger logging.Logger
}

// NewUploader connects to the object store and ensures the bucket exists.
func NewUploader(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "object store client init failed").WithDetail(cfg.Endpoint)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "bucket check failed").WithDetail(cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "bucket creation failed").WithDetail(cfg.Bucket)
		}
		log.Info("created report bucket", logging.String("bucket", cfg.Bucket))
	}

	return &uploader{client: client, bucket: cfg.Bucket, logger: log}, nil
}

func (u *uploader) UploadReport(ctx context.Context, runID, localPath string) (string, error) {
	key := fmt.Sprintf("%s/%s", runID, filepath.Base(localPath))

	contentType := "application/octet-stream"
	switch filepath.Ext(localPath) {
	case ".json":
		contentType = "application/json"
	case ".csv":
		contentType = "text/csv"
	}

	start := time.Now()
	info, err := u.client.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "report upload failed").WithDetail(key)
	}

	u.logger.Info("archived report",
		logging.String("bucket", u.bucket),
		logging.String("key", key),
		logging.Int64("bytes", info.Size),
		logging.Duration("elapsed", time.Since(start)),
	)
	return key, nil
}
