package storage

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
	BackendFS    = "fs"
)

// Config selects and configures a bucket backend
type Config struct {
	Backend   string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
	Root      string
	Timeout   time.Duration
}

// Open creates the bucket described by cfg
func Open(ctx context.Context, cfg Config) (Bucket, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3Bucket(ctx, S3Config{
			Bucket:         cfg.Bucket,
			Region:         cfg.Region,
			Endpoint:       cfg.Endpoint,
			ForcePathStyle: cfg.PathStyle,
			Timeout:        cfg.Timeout,
			AccessKey:      cfg.AccessKey,
			SecretKey:      cfg.SecretKey,
		})
	case BackendMinio:
		return NewMinioBucket(MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case BackendFS:
		return NewDirBucket(cfg.Root)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
