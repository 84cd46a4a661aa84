package watch

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/pkg/polyline"
)

// PostgresRepository is a PostgreSQL implementation of Repository. Route
// geometry is stored polyline-encoded.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL watch repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const watchColumns = `
	id, label, shape, distance_meters, duration_seconds,
	departure_time, point_count, poll_seconds, created_at, updated_at
`

// Get retrieves a watch by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Watch, error) {
	query := `SELECT ` + watchColumns + ` FROM watches WHERE id = $1`

	w, err := scanWatch(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWatchNotFound
		}
		return nil, err
	}
	return w, nil
}

// List retrieves watches with pagination, newest first. The cursor is the ID
// of the last watch on the previous page; keyset pagination on
// (created_at, id) resumes just past it. A cursor whose watch was deleted
// yields an empty page, ending pagination.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to detect a next page.
	fetchLimit := limit + 1

	query := `SELECT ` + watchColumns + ` FROM watches ORDER BY created_at DESC, id DESC LIMIT $1`
	args := []any{fetchLimit}

	if opts.Cursor != "" {
		query = `
			SELECT ` + watchColumns + ` FROM watches
			WHERE (created_at, id) < (SELECT created_at, id FROM watches WHERE id = $2)
			ORDER BY created_at DESC, id DESC LIMIT $1
		`
		args = append(args, opts.Cursor)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	watches, err := collectWatches(rows)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Items: watches}
	if len(watches) > limit {
		result.Items = watches[:limit]
		result.NextCursor = watches[limit-1].ID
	}

	return result, nil
}

// All retrieves every watch, newest first.
func (r *PostgresRepository) All(ctx context.Context) ([]*Watch, error) {
	query := `SELECT ` + watchColumns + ` FROM watches ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWatches(rows)
}

// Create persists a new watch.
func (r *PostgresRepository) Create(ctx context.Context, w *Watch) error {
	query := `
		INSERT INTO watches (
			id, label, shape, distance_meters, duration_seconds,
			departure_time, point_count, poll_seconds, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		w.ID,
		w.Label,
		encodeShape(w.Plan.Waypoints),
		w.Plan.DistanceMeters,
		int64(w.Plan.Duration/time.Second),
		w.Plan.DepartureTime,
		w.PointCount,
		int64(w.PollEvery/time.Second),
		w.CreatedAt,
		w.UpdatedAt,
	)
	return err
}

// Delete removes a watch by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM watches WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatch(row rowScanner) (*Watch, error) {
	var (
		w               Watch
		shape           string
		durationSeconds int64
		pollSeconds     int64
	)

	err := row.Scan(
		&w.ID,
		&w.Label,
		&shape,
		&w.Plan.DistanceMeters,
		&durationSeconds,
		&w.Plan.DepartureTime,
		&w.PointCount,
		&pollSeconds,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Plan.Waypoints = decodeShape(shape)
	w.Plan.Duration = time.Duration(durationSeconds) * time.Second
	w.PollEvery = time.Duration(pollSeconds) * time.Second

	return &w, nil
}

func collectWatches(rows pgx.Rows) ([]*Watch, error) {
	var watches []*Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		watches = append(watches, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return watches, nil
}

func encodeShape(waypoints []route.Coordinate) string {
	shape := make([]polyline.Coordinate, len(waypoints))
	for i, c := range waypoints {
		shape[i] = polyline.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}
	return polyline.Encode(shape)
}

func decodeShape(encoded string) []route.Coordinate {
	shape := polyline.Decode(encoded)
	waypoints := make([]route.Coordinate, len(shape))
	for i, c := range shape {
		waypoints[i] = route.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}
	return waypoints
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
