package watch

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Intended for testing and single-node deployments without a database.
type InMemoryRepository struct {
	mu      sync.RWMutex
	watches map[string]*Watch
}

// NewInMemoryRepository creates a new in-memory watch repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		watches: make(map[string]*Watch),
	}
}

// Get retrieves a watch by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Watch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.watches[id]
	if !ok {
		return nil, ErrWatchNotFound
	}

	cpy := *w
	return &cpy, nil
}

// List retrieves watches with pagination, newest first. The cursor is the ID
// of the last watch on the previous page; results resume just past it. A
// cursor whose watch no longer exists ends pagination instead of restarting
// from the first page.
func (r *InMemoryRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Cursor != "" {
		after := len(all)
		for i, w := range all {
			if w.ID == opts.Cursor {
				after = i + 1
				break
			}
		}
		all = all[after:]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: all}
	if len(all) > limit {
		result.Items = all[:limit]
		result.NextCursor = all[limit-1].ID
	}

	return result, nil
}

// All retrieves every watch, newest first.
func (r *InMemoryRepository) All(_ context.Context) ([]*Watch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	watches := make([]*Watch, 0, len(r.watches))
	for _, w := range r.watches {
		cpy := *w
		watches = append(watches, &cpy)
	}

	sort.Slice(watches, func(i, j int) bool {
		if watches[i].CreatedAt.Equal(watches[j].CreatedAt) {
			return watches[i].ID > watches[j].ID
		}
		return watches[i].CreatedAt.After(watches[j].CreatedAt)
	})

	return watches, nil
}

// Create persists a new watch.
func (r *InMemoryRepository) Create(_ context.Context, w *Watch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *w
	r.watches[w.ID] = &cpy
	return nil
}

// Delete removes a watch by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.watches, id)
	return nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
