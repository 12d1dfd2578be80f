package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the settings needed to reach a MinIO bucket
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioBucket reads objects from a MinIO server
type MinioBucket struct {
	client *minio.Client
	bucket string
}

// NewMinioBucket connects to a MinIO endpoint with static credentials
func NewMinioBucket(cfg MinioConfig) (*MinioBucket, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, newError("open", cfg.Bucket, errors.New("endpoint and bucket are required"))
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, newError("open", cfg.Bucket, err)
	}
	return &MinioBucket{client: client, bucket: cfg.Bucket}, nil
}

// List returns every object key under prefix
func (b *MinioBucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, newError("list", b.bucket+"/"+prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// ListPrefixes returns the pseudo-directories directly under prefix
func (b *MinioBucket) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var prefixes []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, newError("list", b.bucket+"/"+prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			prefixes = append(prefixes, obj.Key)
		}
	}
	return prefixes, nil
}

// Get downloads one object
func (b *MinioBucket) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, b.wrap(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, b.wrap(key, err)
	}
	return data, nil
}

func (b *MinioBucket) wrap(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return newError("get", key, ErrObjectNotFound)
	}
	return newError("get", key, err)
}

var _ Bucket = (*MinioBucket)(nil)
