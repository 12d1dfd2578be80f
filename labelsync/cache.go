package labelsync

import (
	"context"
	"sync"
	"time"

	"github.com/lewtec/labelsync/internal/domain"
)

// ProjectCache keeps the remote project list for a while, the listing is
// slow and rarely changes
type ProjectCache struct {
	mu       sync.RWMutex
	source   domain.ProjectLister
	ttl      time.Duration
	projects []domain.Project
	fetched  time.Time
	now      func() time.Time
}

// NewProjectCache wraps source. A non-positive ttl disables caching.
func NewProjectCache(source domain.ProjectLister, ttl time.Duration) *ProjectCache {
	return &ProjectCache{source: source, ttl: ttl, now: time.Now}
}

// GetProjects returns cached projects if still fresh
func (pc *ProjectCache) GetProjects() ([]domain.Project, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.projects != nil && pc.now().Sub(pc.fetched) < pc.ttl {
		return pc.projects, true
	}
	return nil, false
}

// SetProjects caches the projects list
func (pc *ProjectCache) SetProjects(projects []domain.Project) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if projects == nil {
		projects = []domain.Project{}
	}
	pc.projects = projects
	pc.fetched = pc.now()
}

// ListProjects serves from the cache, falling back to the source
func (pc *ProjectCache) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if projects, ok := pc.GetProjects(); ok {
		return projects, nil
	}
	projects, err := pc.source.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	pc.SetProjects(projects)
	return projects, nil
}

var _ domain.ProjectLister = (*ProjectCache)(nil)
