// Package storage reads datasets out of object storage.
//
// A dataset lives under "<version>/<dataset>/": one COCO annotation document
// plus any number of image objects, possibly nested. Store implements the
// layout on top of a Bucket, which is the only thing a backend provides.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/lewtec/labelsync/internal/domain"
)

// DefaultAnnotationsFile is the COCO document name inside a dataset prefix
const DefaultAnnotationsFile = "_annotations.coco.json"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
	".gif":  true,
}

// Bucket is a flat key/value object namespace
type Bucket interface {
	// List returns every key under prefix, recursively
	List(ctx context.Context, prefix string) ([]string, error)

	// ListPrefixes returns the immediate child prefixes of prefix, each
	// ending with "/"
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)

	// Get returns the content of one object
	Get(ctx context.Context, key string) ([]byte, error)
}

// Store implements domain.AnnotationStore and domain.DatasetCatalog
type Store struct {
	bucket          Bucket
	annotationsFile string
	timeout         time.Duration
	logger          *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithAnnotationsFile overrides the annotation document name
func WithAnnotationsFile(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.annotationsFile = name
		}
	}
}

// WithTimeout bounds every bucket call
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store over a bucket
func NewStore(bucket Bucket, opts ...Option) *Store {
	s := &Store{
		bucket:          bucket,
		annotationsFile: DefaultAnnotationsFile,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func datasetPrefix(version, dataset string) (string, error) {
	for _, part := range []string{version, dataset} {
		if part == "" || part == "." || part == ".." || strings.Contains(part, "/") {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, part)
		}
	}
	return version + "/" + dataset + "/", nil
}

// GetAnnotations fetches and decodes the dataset's COCO document
func (s *Store) GetAnnotations(ctx context.Context, version, dataset string) (*domain.AnnotationSet, error) {
	prefix, err := datasetPrefix(version, dataset)
	if err != nil {
		return nil, newError("annotations", "", err)
	}
	key := prefix + s.annotationsFile

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	data, err := s.bucket.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	set, err := domain.ParseAnnotationSet(data)
	if err != nil {
		return nil, newError("annotations", key, err)
	}
	s.logger.Debug("fetched annotation set", "key", key, "images", len(set.Images), "annotations", len(set.Annotations))
	return set, nil
}

// ListImages enumerates the image objects of a dataset, sorted by key
func (s *Store) ListImages(ctx context.Context, version, dataset string) ([]domain.ImageKey, error) {
	prefix, err := datasetPrefix(version, dataset)
	if err != nil {
		return nil, newError("list", "", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	keys, err := s.bucket.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	images := make([]domain.ImageKey, 0, len(keys))
	for _, key := range keys {
		if isImage(key) {
			images = append(images, domain.ImageKey(key))
		}
	}
	sort.Slice(images, func(i, j int) bool { return images[i] < images[j] })
	return images, nil
}

// GetImage retrieves the bytes of one image
func (s *Store) GetImage(ctx context.Context, key domain.ImageKey) ([]byte, error) {
	if key == "" {
		return nil, newError("get", "", ErrInvalidKey)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.bucket.Get(ctx, string(key))
}

// ListVersions lists the top-level version prefixes
func (s *Store) ListVersions(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	prefixes, err := s.bucket.ListPrefixes(ctx, "")
	if err != nil {
		return nil, err
	}
	return trimPrefixes(prefixes, ""), nil
}

// ListDatasets lists the datasets of a version
func (s *Store) ListDatasets(ctx context.Context, version string) ([]string, error) {
	if version == "" || strings.Contains(version, "/") {
		return nil, newError("list", version, ErrInvalidKey)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	prefixes, err := s.bucket.ListPrefixes(ctx, version+"/")
	if err != nil {
		return nil, err
	}
	return trimPrefixes(prefixes, version+"/"), nil
}

func trimPrefixes(prefixes []string, parent string) []string {
	names := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(p, parent), "/")
		if name == "" || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isImage(key string) bool {
	return imageExtensions[strings.ToLower(path.Ext(key))]
}

var (
	_ domain.AnnotationStore = (*Store)(nil)
	_ domain.DatasetCatalog  = (*Store)(nil)
)
