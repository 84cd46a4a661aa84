// Package route defines trip geometry and the timeline sampler that turns a
// planned route into timed sample points for weather correlation.
package route

import (
	"errors"
	"time"

	"github.com/cargowatch/cargowatch/pkg/polyline"
)

// Route errors.
var (
	ErrInvalidRoute       = errors.New("route plan is invalid")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Plan is the geometric and temporal description of a planned trip.
// It is immutable once built and passed by value into the risk engine.
type Plan struct {
	// Waypoints is the ordered route geometry, at least two points.
	Waypoints []Coordinate

	// DistanceMeters is the total route distance.
	DistanceMeters float64

	// Duration is the total estimated travel time.
	Duration time.Duration

	// DepartureTime is the absolute departure timestamp.
	DepartureTime time.Time
}

// Validate checks the plan invariants: at least two waypoints, positive
// distance and duration, and coordinates within WGS84 ranges.
func (p Plan) Validate() error {
	if len(p.Waypoints) < 2 {
		return ErrInvalidRoute
	}
	if p.DistanceMeters <= 0 || p.Duration <= 0 {
		return ErrInvalidRoute
	}
	for _, c := range p.Waypoints {
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			return ErrInvalidCoordinates
		}
	}
	return nil
}

// Origin returns the first waypoint.
func (p Plan) Origin() Coordinate {
	return p.Waypoints[0]
}

// Destination returns the last waypoint.
func (p Plan) Destination() Coordinate {
	return p.Waypoints[len(p.Waypoints)-1]
}

// ArrivalTime returns the estimated arrival timestamp.
func (p Plan) ArrivalTime() time.Time {
	return p.DepartureTime.Add(p.Duration)
}

// shape converts the waypoints into the polyline package's coordinate type.
func (p Plan) shape() []polyline.Coordinate {
	shape := make([]polyline.Coordinate, len(p.Waypoints))
	for i, c := range p.Waypoints {
		shape[i] = polyline.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}
	return shape
}

// PlanFromPolyline builds a Plan from an encoded polyline shape. The distance
// is measured from the decoded geometry.
func PlanFromPolyline(encoded string, duration time.Duration, departure time.Time) (Plan, error) {
	shape := polyline.Decode(encoded)
	coords := make([]Coordinate, len(shape))
	for i, c := range shape {
		coords[i] = Coordinate{Lat: c.Lat, Lon: c.Lon}
	}

	plan := Plan{
		Waypoints:      coords,
		DistanceMeters: polyline.Length(shape),
		Duration:       duration,
		DepartureTime:  departure,
	}
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// TimelinePoint is a route sample with an estimated passage time and distance
// offset. Points are derived per sampling pass and never persisted.
type TimelinePoint struct {
	// Index is the position of the point within the timeline.
	Index int

	// Coordinate is the sampled location.
	Coordinate Coordinate

	// EstimatedTime is when the vehicle is expected to pass this point.
	EstimatedTime time.Time

	// DistanceFromStart is the offset from the route origin in meters.
	DistanceFromStart float64
}
