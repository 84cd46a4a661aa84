// Package hazard defines severe-weather advisories and the service that
// fetches them for planned routes.
package hazard

import (
	"context"
	"errors"
	"time"

	"github.com/cargowatch/cargowatch/internal/route"
)

// Hazard errors.
var (
	ErrProviderUnavailable = errors.New("hazard provider unavailable")
)

// Type is the closed set of hazard categories the gateway reports.
type Type string

const (
	TypeRain       Type = "RAIN"
	TypeHeavyRain  Type = "HEAVY_RAIN"
	TypeSnow       Type = "SNOW"
	TypeIce        Type = "ICE"
	TypeFog        Type = "FOG"
	TypeWind       Type = "WIND"
	TypeStrongWind Type = "STRONG_WIND"
	TypeStorm      Type = "STORM"
)

// Label returns the human-readable name of the hazard type.
func (t Type) Label() string {
	switch t {
	case TypeRain:
		return "Rain"
	case TypeHeavyRain:
		return "Heavy rain"
	case TypeSnow:
		return "Snowfall"
	case TypeIce:
		return "Ice"
	case TypeFog:
		return "Fog"
	case TypeWind:
		return "Wind"
	case TypeStrongWind:
		return "Strong wind"
	case TypeStorm:
		return "Storm"
	default:
		return "Weather hazard"
	}
}

// Severity orders hazard advisories from least to most dangerous.
type Severity string

const (
	SeverityLow     Severity = "LOW"
	SeverityMedium  Severity = "MEDIUM"
	SeverityHigh    Severity = "HIGH"
	SeverityExtreme Severity = "EXTREME"
)

// Rank returns the ordinal position of the severity, LOW being lowest.
// Unknown severities rank below LOW so they never inflate a score.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityExtreme:
		return 4
	default:
		return 0
	}
}

// Label returns the human-readable severity name.
func (s Severity) Label() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityExtreme:
		return "Extreme"
	default:
		return "Unknown"
	}
}

// Warning is a hazard advisory somewhere along a route. Warnings are not tied
// 1:1 to timeline points; correlation attaches them by time proximity.
type Warning struct {
	// Type categorizes the hazard.
	Type Type

	// Severity orders the advisory's danger level.
	Severity Severity

	// WindowStart and WindowEnd bound the advisory's validity.
	WindowStart time.Time
	WindowEnd   time.Time

	// Coordinate locates the advisory.
	Coordinate route.Coordinate

	// Description is the provider's free-text summary.
	Description string

	// Recommendation is optional advisory text supplied by the provider,
	// passed through verbatim to the recommendation list.
	Recommendation string

	// DistanceFromStart is the optional offset along the route in meters.
	// Negative means not reported.
	DistanceFromStart float64
}

// Provider supplies hazard advisories for routes.
type Provider interface {
	// RouteWarnings returns advisories anywhere along the route for the
	// travel window, in provider order.
	RouteWarnings(ctx context.Context, points []route.TimelinePoint, departure time.Time) ([]Warning, error)

	// Name identifies the provider for logging.
	Name() string
}
