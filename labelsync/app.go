// Package labelsync wires the dataset sync pipeline into an application:
// configuration, logging, run history and the HTTP surface.
package labelsync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/lewtec/labelsync/internal/domain"
	"github.com/lewtec/labelsync/internal/pipeline"
	"github.com/lewtec/labelsync/internal/repository"
	"github.com/lewtec/labelsync/internal/roboflow"
	"github.com/lewtec/labelsync/internal/storage"
)

// DatasetStore is everything the app reads from the annotation store
type DatasetStore interface {
	domain.AnnotationStore
	domain.DatasetCatalog
	Stats(ctx context.Context, version, dataset string) (*domain.DatasetStats, error)
}

// App holds the services behind the CLI and the HTTP server
type App struct {
	Config   *Config
	Store    DatasetStore
	Uploader domain.Uploader
	Projects domain.ProjectLister
	Runs     domain.RunRepository
	Database *sql.DB
	Logger   *slog.Logger
}

// NewApp builds every service from the configuration
func NewApp(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	bucket, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("while opening %s storage: %w", cfg.Storage.Backend, err)
	}
	store := storage.NewStore(bucket,
		storage.WithAnnotationsFile(cfg.Storage.AnnotationsFile),
		storage.WithTimeout(cfg.Storage.Timeout),
		storage.WithLogger(logger),
	)

	client := roboflow.NewClient(roboflow.Config{
		APIURL:    cfg.Roboflow.APIURL,
		APIKey:    cfg.Roboflow.APIKey,
		Workspace: cfg.Roboflow.Workspace,
		Split:     cfg.Roboflow.Split,
		Timeout:   cfg.Roboflow.Timeout,
	}, logger)

	db, err := GetDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		Store:    store,
		Uploader: client,
		Projects: NewProjectCache(client, cfg.Roboflow.ProjectCacheTTL),
		Runs:     repository.NewRunRepository(db),
		Database: db,
		Logger:   logger,
	}, nil
}

// Close releases the database
func (a *App) Close() error {
	if a.Database != nil {
		return a.Database.Close()
	}
	return nil
}

func (a *App) syncOptions(progress pipeline.ProgressFunc) (pipeline.Options, error) {
	policy, err := pipeline.ParseDuplicatePolicy(a.Config.Sync.DuplicateFileNames)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("sync.duplicate_file_names: %w", err)
	}
	return pipeline.Options{
		Workers:         a.Config.Sync.Workers,
		MaxErrors:       a.Config.Sync.MaxErrors,
		ImageTimeout:    a.Config.Sync.ImageTimeout,
		ValidateImages:  a.Config.Sync.ValidateImages,
		DuplicatePolicy: policy,
		Progress:        progress,
	}, nil
}

// Sync runs one dataset sync and records it in the run history. Invalid
// requests are rejected before the store is touched and are not recorded.
func (a *App) Sync(ctx context.Context, req domain.SyncRequest, progress pipeline.ProgressFunc) (*domain.SyncReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	opts, err := a.syncOptions(progress)
	if err != nil {
		return nil, err
	}

	run := &domain.Run{
		ID:        uuid.NewString(),
		Version:   req.Version,
		Dataset:   req.Dataset,
		ProjectID: req.ProjectID,
		StartedAt: time.Now(),
	}
	syncer := pipeline.NewSyncer(a.Store, a.Uploader, opts, a.logger().With("run_id", run.ID))
	res, err := syncer.Run(ctx, req)
	run.FinishedAt = time.Now()

	if err != nil {
		run.Error = err.Error()
		a.record(ctx, run)
		return nil, err
	}

	report := res.Report
	report.RunID = run.ID
	run.Uploaded = report.Uploaded
	run.Failed = report.Failed
	run.Success = report.Success
	run.Cancelled = report.Cancelled
	run.Items = res.Outcomes
	a.record(ctx, run)
	return report, nil
}

// record stores a run even when ctx was cancelled by a client disconnect
func (a *App) record(ctx context.Context, run *domain.Run) {
	if a.Runs == nil {
		return
	}
	if err := a.Runs.Create(context.WithoutCancel(ctx), run); err != nil {
		a.logger().Error("failed to record sync run", "run_id", run.ID, "error", err)
	}
}

// FilterProjects lists remote projects whose name or id fuzzily matches
// query. An empty query returns everything.
func (a *App) FilterProjects(ctx context.Context, query string) ([]domain.Project, error) {
	projects, err := a.Projects.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return projects, nil
	}
	matched := []domain.Project{}
	for _, p := range projects {
		if fuzzy.MatchFold(query, p.Name) || fuzzy.MatchFold(query, p.ID) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// GetRun retrieves one recorded run
func (a *App) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	run, err := a.Runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return run, nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
