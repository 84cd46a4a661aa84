package watch

import "context"

// ListOptions contains options for listing watches.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing watches.
type ListResult struct {
	Items      []*Watch
	NextCursor string
}

// Repository defines the interface for watch persistence.
type Repository interface {
	// Get retrieves a watch by ID. Returns ErrWatchNotFound when absent.
	Get(ctx context.Context, id string) (*Watch, error)

	// List retrieves watches with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// All retrieves every watch, for monitor startup and the worker.
	All(ctx context.Context) ([]*Watch, error)

	// Create persists a new watch.
	Create(ctx context.Context, w *Watch) error

	// Delete removes a watch by ID.
	Delete(ctx context.Context, id string) error
}
