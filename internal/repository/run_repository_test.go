package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lewtec/labelsync/internal/domain"
)

func sampleRun(id string, started time.Time) *domain.Run {
	return &domain.Run{
		ID:         id,
		Version:    "v1",
		Dataset:    "ds",
		ProjectID:  "boxes",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Uploaded:   1,
		Failed:     1,
		Items: []domain.SyncOutcome{
			{Key: "v1/ds/a.jpg", FileName: "a.jpg", Status: domain.OutcomeUploaded, SHA256: "abc123"},
			{Key: "v1/ds/c.jpg", FileName: "c.jpg", Status: domain.OutcomeSkippedNoAnnotation, Reason: "No annotation found for: c.jpg"},
		},
	}
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewRunRepository(db)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)

	t.Run("round trips a run with items", func(t *testing.T) {
		if err := repo.Create(ctx, sampleRun("run-1", started)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		run, err := repo.Get(ctx, "run-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if run == nil {
			t.Fatal("Expected run, got nil")
		}
		if !run.StartedAt.Equal(started) {
			t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
		}
		if run.Uploaded != 1 || run.Failed != 1 {
			t.Errorf("counters = %d/%d, want 1/1", run.Uploaded, run.Failed)
		}
		if run.Success {
			t.Error("Success should be false")
		}
		if len(run.Items) != 2 {
			t.Fatalf("len(Items) = %d, want 2", len(run.Items))
		}
		if run.Items[0].SHA256 != "abc123" {
			t.Errorf("Items[0].SHA256 = %q, want abc123", run.Items[0].SHA256)
		}
		if run.Items[1].Status != domain.OutcomeSkippedNoAnnotation {
			t.Errorf("Items[1].Status = %v", run.Items[1].Status)
		}
		if run.Items[1].Reason != "No annotation found for: c.jpg" {
			t.Errorf("Items[1].Reason = %q", run.Items[1].Reason)
		}
	})

	t.Run("returns nil for unknown run", func(t *testing.T) {
		run, err := repo.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if run != nil {
			t.Errorf("Expected nil, got %+v", run)
		}
	})

	t.Run("fails on duplicate id", func(t *testing.T) {
		if err := repo.Create(ctx, sampleRun("run-1", started)); err == nil {
			t.Error("Expected error for duplicate id")
		}
		items := 0
		if err := db.QueryRow("SELECT COUNT(*) FROM sync_run_items WHERE run_id = 'run-1'").Scan(&items); err != nil {
			t.Fatal(err)
		}
		if items != 2 {
			t.Errorf("items = %d, want 2 after rolled back insert", items)
		}
	})
}

func TestRunRepository_ListAndCount(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewRunRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "middle", "new"} {
		run := sampleRun(id, base.Add(time.Duration(i)*time.Hour))
		run.Items = nil
		if id == "old" {
			run.Error = "while fetching annotations: boom"
		}
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	runs, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "middle" {
		t.Errorf("order = %s, %s; want new, middle", runs[0].ID, runs[1].ID)
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[2].Error != "while fetching annotations: boom" {
		t.Errorf("unexpected runs %+v", all)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	version, dirty, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 clean", version, dirty)
	}

	MustExec(t, db, "DELETE FROM sync_runs")
}
