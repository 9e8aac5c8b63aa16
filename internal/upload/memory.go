package upload

import (
	"context"
	"slices"
	"sync"
)

// DefaultRegistrySize is how many uploads MemoryRepository keeps by default.
const DefaultRegistrySize = 100

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It keeps at most limit uploads; when full, the oldest finished upload is
// evicted. In-flight uploads are never evicted.
type MemoryRepository struct {
	mu      sync.RWMutex
	uploads map[string]*Upload
	limit   int
}

// NewMemoryRepository creates a new in-memory registry holding up to limit
// uploads. A limit below 1 uses DefaultRegistrySize.
func NewMemoryRepository(limit int) *MemoryRepository {
	if limit < 1 {
		limit = DefaultRegistrySize
	}
	return &MemoryRepository{
		uploads: make(map[string]*Upload),
		limit:   limit,
	}
}

// Save stores a clone of the upload to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, upload *Upload) error {
	snapshot := upload.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.uploads[snapshot.ID]; !ok && len(r.uploads) >= r.limit {
		r.evictOldestFinished()
	}
	r.uploads[snapshot.ID] = snapshot
	return nil
}

// FindByID retrieves an upload by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, ErrUploadNotFound
	}
	return u.Clone(), nil
}

// List returns clones of all uploads, newest first.
func (r *MemoryRepository) List(_ context.Context) ([]*Upload, error) {
	r.mu.RLock()
	result := make([]*Upload, 0, len(r.uploads))
	for _, u := range r.uploads {
		result = append(result, u.Clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(result, func(a, b *Upload) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

// evictOldestFinished removes the oldest terminal upload. Callers hold mu.
func (r *MemoryRepository) evictOldestFinished() {
	var oldest *Upload
	for _, u := range r.uploads {
		if !u.IsTerminal() {
			continue
		}
		if oldest == nil || u.CreatedAt.Before(oldest.CreatedAt) {
			oldest = u
		}
	}
	if oldest != nil {
		delete(r.uploads, oldest.ID)
	}
}
