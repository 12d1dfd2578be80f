package domain

import (
	"context"
	"time"
)

// Run is a recorded sync run
type Run struct {
	ID         string        `json:"id"`
	Version    string        `json:"version"`
	Dataset    string        `json:"dataset"`
	ProjectID  string        `json:"projectId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Uploaded   int           `json:"uploaded"`
	Failed     int           `json:"failed"`
	Success    bool          `json:"success"`
	Cancelled  bool          `json:"cancelled"`
	Error      string        `json:"error,omitempty"`
	Items      []SyncOutcome `json:"items,omitempty"`
}

// RunRepository defines the interface for run history storage
type RunRepository interface {
	// Create stores a finished run together with its per-image outcomes
	Create(ctx context.Context, run *Run) error

	// Get retrieves a run with its items, nil when absent
	Get(ctx context.Context, id string) (*Run, error)

	// List retrieves the most recent runs without their items
	List(ctx context.Context, limit int) ([]*Run, error)

	// Count returns the number of recorded runs
	Count(ctx context.Context) (int64, error)
}
