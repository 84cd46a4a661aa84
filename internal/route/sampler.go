package route

import (
	"time"

	"github.com/cargowatch/cargowatch/pkg/polyline"
)

// Sampling bounds. Forecast providers rarely resolve anything finer than a
// couple dozen points per route, so the derived count is clamped.
const (
	MinSamplePoints = 2
	MaxSamplePoints = 24
)

// SamplerConfig holds configuration for the timeline sampler.
type SamplerConfig struct {
	// MaxPoints caps the derived point count. Default: MaxSamplePoints.
	MaxPoints int
}

// Sampler converts route plans into ordered, timed sample points.
//
// The ETA model is linear: passage time and distance offset grow
// proportionally with the point index. Variable speed per road segment is not
// modelled; for the forecast granularity involved this is an acceptable
// approximation.
type Sampler struct {
	maxPoints int
}

// NewSampler creates a new timeline sampler.
func NewSampler(cfg SamplerConfig) *Sampler {
	maxPoints := cfg.MaxPoints
	if maxPoints < MinSamplePoints {
		maxPoints = MaxSamplePoints
	}
	return &Sampler{maxPoints: maxPoints}
}

// Sample produces pointCount timeline points along the plan. A pointCount of
// zero or less derives the count from the plan geometry, one point per
// waypoint, clamped to [MinSamplePoints, MaxPoints].
//
// Guarantees for a valid plan: the first point carries the departure time and
// zero offset, the last carries the arrival time and the full distance, and
// both sequences are non-decreasing in between.
func (s *Sampler) Sample(plan Plan, pointCount int) ([]TimelinePoint, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	if pointCount <= 0 {
		pointCount = len(plan.Waypoints)
	}
	if pointCount < MinSamplePoints {
		pointCount = MinSamplePoints
	}
	if pointCount > s.maxPoints {
		pointCount = s.maxPoints
	}

	shape := plan.shape()
	points := make([]TimelinePoint, pointCount)

	for i := 0; i < pointCount; i++ {
		fraction := float64(i) / float64(pointCount-1)
		pos := polyline.PointAt(shape, fraction)

		points[i] = TimelinePoint{
			Index:             i,
			Coordinate:        Coordinate{Lat: pos.Lat, Lon: pos.Lon},
			EstimatedTime:     plan.DepartureTime.Add(time.Duration(fraction * float64(plan.Duration))),
			DistanceFromStart: plan.DistanceMeters * fraction,
		}
	}

	// Pin the endpoints exactly; floating point drift must not move them.
	points[0].EstimatedTime = plan.DepartureTime
	points[0].DistanceFromStart = 0
	points[pointCount-1].EstimatedTime = plan.ArrivalTime()
	points[pointCount-1].DistanceFromStart = plan.DistanceMeters

	return points, nil
}
