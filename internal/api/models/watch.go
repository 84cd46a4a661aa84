package models

import (
	"time"

	"github.com/cargowatch/cargowatch/internal/watch"
)

// WatchCreateRequest is the body of POST /v1/watches. The route geometry is
// given either as explicit waypoints or as an encoded polyline.
type WatchCreateRequest struct {
	Label           string    `json:"label" validate:"required,max=120"`
	Waypoints       []Point   `json:"waypoints,omitempty" validate:"omitempty,min=2,dive"`
	Polyline        string    `json:"polyline,omitempty"`
	DistanceMeters  float64   `json:"distanceMeters,omitempty" validate:"omitempty,gt=0"`
	DurationSeconds int       `json:"durationSeconds" validate:"required,gt=0"`
	DepartureTime   time.Time `json:"departureTime" validate:"required"`
	PointCount      int       `json:"pointCount,omitempty" validate:"omitempty,min=2,max=24"`
	PollSeconds     int       `json:"pollSeconds,omitempty" validate:"omitempty,min=300,max=600"`
}

// Watch represents a monitored route.
type Watch struct {
	ID              string    `json:"id"`
	Label           string    `json:"label"`
	Waypoints       []Point   `json:"waypoints"`
	DistanceMeters  float64   `json:"distanceMeters"`
	DurationSeconds int       `json:"durationSeconds"`
	DepartureTime   Timestamp `json:"departureTime"`
	PointCount      int       `json:"pointCount,omitempty"`
	PollSeconds     int       `json:"pollSeconds"`
	CreatedAt       Timestamp `json:"createdAt"`
	UpdatedAt       Timestamp `json:"updatedAt"`
}

// PagedWatches is a paginated list of watches.
type PagedWatches struct {
	Items []Watch           `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// WatchAssessment is the monitor snapshot for a watch.
type WatchAssessment struct {
	State      string                   `json:"state"`
	Assessment *RouteAssessmentResponse `json:"assessment,omitempty"`
	Error      string                   `json:"error,omitempty"`
	UpdatedAt  Timestamp                `json:"updatedAt"`
}

// NewWatch maps a domain watch into its API model.
func NewWatch(w *watch.Watch) Watch {
	waypoints := make([]Point, len(w.Plan.Waypoints))
	for i, c := range w.Plan.Waypoints {
		waypoints[i] = Point{Lat: c.Lat, Lon: c.Lon}
	}
	return Watch{
		ID:              w.ID,
		Label:           w.Label,
		Waypoints:       waypoints,
		DistanceMeters:  w.Plan.DistanceMeters,
		DurationSeconds: int(w.Plan.Duration.Seconds()),
		DepartureTime:   Timestamp(w.Plan.DepartureTime),
		PointCount:      w.PointCount,
		PollSeconds:     int(w.PollEvery.Seconds()),
		CreatedAt:       Timestamp(w.CreatedAt),
		UpdatedAt:       Timestamp(w.UpdatedAt),
	}
}
