// Package watch manages monitored routes: persisted route plans that the
// service keeps under live risk polling.
package watch

import (
	"errors"
	"time"

	"github.com/cargowatch/cargowatch/internal/route"
)

// Repository errors.
var (
	ErrWatchNotFound = errors.New("watch not found")
)

// Watch is a route under live monitoring.
type Watch struct {
	ID    string
	Label string

	// Plan is the monitored route.
	Plan route.Plan

	// PointCount requested for the timeline. Non-positive derives it from
	// the route geometry.
	PointCount int

	// PollEvery is the refresh period, clamped by the monitor to [5m, 10m].
	PollEvery time.Duration

	CreatedAt time.Time
	UpdatedAt time.Time
}
