package assessment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
)

// Repository persists job records. Create fails on a duplicate id,
// Get fails when the id is unknown; both surface typed faults so the
// HTTP boundary can map them without string matching.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, rec *Record) error
	List(ctx context.Context, limit int) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

func errDuplicate(id string) error {
	return fault.Newf(fault.ClassInput, fault.CodeDuplicateJob, "job %s already exists", id)
}

func errNotFound(id string) error {
	return fault.Newf(fault.ClassInput, fault.CodeNotFound, "job %s not found", id)
}

// MemoryRepository keeps records in process. It backs tests and
// single-node deployments that run without Postgres.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: make(map[string]*Record)}
}

func (r *MemoryRepository) Create(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[rec.ID]; ok {
		return errDuplicate(rec.ID)
	}
	r.jobs[rec.ID] = rec.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.jobs[id]
	if !ok {
		return nil, errNotFound(id)
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[rec.ID]; !ok {
		return errNotFound(rec.ID)
	}
	r.jobs[rec.ID] = rec.Clone()
	return nil
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Record, 0, len(r.jobs))
	for _, rec := range r.jobs {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return errNotFound(id)
	}
	delete(r.jobs, id)
	return nil
}

func (r *MemoryRepository) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for id, rec := range r.jobs {
		if rec.State.Terminal() && rec.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			purged++
		}
	}
	return purged, nil
}
