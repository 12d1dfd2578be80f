// Package pipeline drives a dataset sync: it resolves every image key of a
// dataset against the annotation set, converts the boxes and hands each
// image to the uploader through a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lewtec/labelsync/internal/convert"
	"github.com/lewtec/labelsync/internal/domain"
)

const (
	DefaultWorkers      = 4
	DefaultImageTimeout = 60 * time.Second
)

// ProgressFunc is called after each image with the number of finished
// images and the total
type ProgressFunc func(done, total int)

// Options tunes a Syncer
type Options struct {
	Workers      int
	MaxErrors    int
	ImageTimeout time.Duration
	// ValidateImages decodes image headers and fails images whose size
	// disagrees with the annotation set
	ValidateImages  bool
	DuplicatePolicy DuplicatePolicy
	Progress        ProgressFunc
}

// Result is a finished run: the public report plus per-image outcomes
type Result struct {
	Report   *domain.SyncReport
	Outcomes []domain.SyncOutcome
}

// Syncer pushes datasets from an annotation store to an uploader
type Syncer struct {
	store    domain.AnnotationStore
	uploader domain.Uploader
	opts     Options
	logger   *slog.Logger
}

// NewSyncer creates a Syncer, filling unset options with defaults
func NewSyncer(store domain.AnnotationStore, uploader domain.Uploader, opts Options, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = DefaultImageTimeout
	}
	if opts.DuplicatePolicy == "" {
		opts.DuplicatePolicy = DuplicateFail
	}
	return &Syncer{store: store, uploader: uploader, opts: opts, logger: logger}
}

// Sync runs one sync and returns its report
func (s *Syncer) Sync(ctx context.Context, req domain.SyncRequest) (*domain.SyncReport, error) {
	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

// job is the read-only state shared by the workers of one run
type job struct {
	req       domain.SyncRequest
	index     *IdentityIndex
	converter *convert.Converter
	acc       *Accumulator
	total     int
}

// Run performs a sync. Failing to fetch the annotation set, failing to
// enumerate image keys and duplicate file names abort the run; everything
// after that is recorded per image.
func (s *Syncer) Run(ctx context.Context, req domain.SyncRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger := s.logger.With("version", req.Version, "dataset", req.Dataset, "project", req.ProjectID)

	set, err := s.store.GetAnnotations(ctx, req.Version, req.Dataset)
	if err != nil {
		return nil, fmt.Errorf("while fetching annotations: %w: %w", domain.ErrAnnotationsUnavailable, err)
	}
	keys, err := s.store.ListImages(ctx, req.Version, req.Dataset)
	if err != nil {
		return nil, fmt.Errorf("while listing images: %w: %w", domain.ErrImagesUnavailable, err)
	}
	index, err := BuildIndex(set.Images, s.opts.DuplicatePolicy, logger)
	if err != nil {
		return nil, err
	}

	j := &job{
		req:       req,
		index:     index,
		converter: convert.New(set),
		acc:       NewAccumulator(len(keys)),
		total:     len(keys),
	}

	logger.Info("starting sync", "images", len(keys), "annotated", index.Len(), "workers", s.opts.Workers)
	start := time.Now()
	cancelled := s.dispatch(ctx, j, keys)

	report := j.acc.Report(s.opts.MaxErrors)
	report.Cancelled = cancelled
	logger.Info("sync finished",
		"uploaded", report.Uploaded,
		"failed", report.Failed,
		"cancelled", cancelled,
		"duration", time.Since(start))

	return &Result{Report: report, Outcomes: j.acc.Outcomes()}, nil
}

// dispatch feeds key positions to at most opts.Workers goroutines and
// reports whether the context stopped it early
func (s *Syncer) dispatch(ctx context.Context, j *job, keys []domain.ImageKey) bool {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.opts.Workers)
	cancelled := false

	for pos, key := range keys {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			cancelled = true
		}
		if cancelled {
			break
		}
		// both select cases may be ready at once
		if ctx.Err() != nil {
			<-semaphore
			cancelled = true
			break
		}

		wg.Add(1)
		go func(pos int, key domain.ImageKey) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcome, ok := s.process(ctx, j, key)
			if !ok {
				return
			}
			done := j.acc.Record(pos, outcome)
			if s.opts.Progress != nil {
				s.opts.Progress(done, j.total)
			}
		}(pos, key)
	}

	wg.Wait()
	return cancelled || ctx.Err() != nil
}

// process runs the per-image state machine. It never returns an error: every
// failure becomes a failed outcome with its log line. ok is false when the
// run context ended while the image was in flight; such an image counts as
// unprocessed rather than failed.
func (s *Syncer) process(ctx context.Context, j *job, key domain.ImageKey) (outcome domain.SyncOutcome, ok bool) {
	fileName := key.FileName()
	outcome = domain.SyncOutcome{Key: key, FileName: fileName}

	imageID, found := j.index.Lookup(fileName)
	if !found {
		outcome.Status = domain.OutcomeSkippedNoAnnotation
		outcome.Reason = "No annotation found for: " + fileName
		return outcome, true
	}

	data, err := s.fetch(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, false
		}
		return failed(outcome, fmt.Sprintf("%s: %v", key, err)), true
	}
	outcome.SHA256 = HashBytes(data)

	if s.opts.ValidateImages {
		img, _ := j.converter.Image(imageID)
		if err := CheckDimensions(data, img); err != nil {
			return failed(outcome, fmt.Sprintf("%s: %v", key, err)), true
		}
	}

	annotation, err := j.converter.Convert(imageID)
	if err != nil {
		return failed(outcome, fmt.Sprintf("%s: %v", key, err)), true
	}

	result, err := s.upload(ctx, j.req.ProjectID, data, fileName, annotation)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, false
		}
		return failed(outcome, fmt.Sprintf("%s: %v", key, err)), true
	}
	if !result.Success {
		if result.Error != "" {
			return failed(outcome, fmt.Sprintf("%s: %s", fileName, result.Error)), true
		}
		return failed(outcome, ""), true
	}

	outcome.Status = domain.OutcomeUploaded
	s.logger.Debug("uploaded image", "key", key, "boxes", len(annotation.Lines), "remote_id", result.ImageID)
	return outcome, true
}

func (s *Syncer) fetch(ctx context.Context, key domain.ImageKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ImageTimeout)
	defer cancel()
	return s.store.GetImage(ctx, key)
}

func (s *Syncer) upload(ctx context.Context, projectID string, data []byte, fileName string, annotation domain.ConvertedAnnotation) (domain.UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ImageTimeout)
	defer cancel()
	return s.uploader.UploadImage(ctx, projectID, data, fileName, annotation)
}

func failed(outcome domain.SyncOutcome, reason string) domain.SyncOutcome {
	outcome.Status = domain.OutcomeFailed
	outcome.Reason = reason
	return outcome
}
