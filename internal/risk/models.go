// Package risk computes weather-risk assessments for planned routes. It
// joins the route timeline with forecast samples and hazard advisories,
// scores the combined conditions, and generates driver recommendations.
package risk

import (
	"time"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/weather"
)

// Band is the presentational severity band. It is always derived from the
// overall score, never stored independently.
type Band string

const (
	BandLow     Band = "LOW"
	BandMedium  Band = "MEDIUM"
	BandHigh    Band = "HIGH"
	BandExtreme Band = "EXTREME"
)

// BandFor maps an overall score to its display band.
func BandFor(score float64) Band {
	switch {
	case score < 25:
		return BandLow
	case score < 50:
		return BandMedium
	case score < 75:
		return BandHigh
	default:
		return BandExtreme
	}
}

// Label returns the human-readable band name.
func (b Band) Label() string {
	switch b {
	case BandLow:
		return "Low"
	case BandMedium:
		return "Medium"
	case BandHigh:
		return "High"
	case BandExtreme:
		return "Extreme"
	default:
		return "Unknown"
	}
}

// Factor is one contribution to a risk score. Informational factors carry
// zero impact but still appear in the list.
type Factor struct {
	// Name of the factor, e.g. "Low temperature".
	Name string

	// Impact added to the overall score.
	Impact float64

	// Description explains the factor.
	Description string
}

// Assessment is a scored set of conditions with recommendations.
type Assessment struct {
	// OverallRisk on the 0-100 scale, clamped.
	OverallRisk float64

	// Factors that contributed, in evaluation order.
	Factors []Factor

	// Recommendations for the driver, deduplicated, order preserved.
	Recommendations []string

	// GeneratedAt stamps when the assessment was computed.
	GeneratedAt time.Time

	// Synthetic marks assessments built from synthesized weather data.
	Synthetic bool
}

// Band returns the display band for the overall score.
func (a *Assessment) Band() Band {
	return BandFor(a.OverallRisk)
}

// PointConditions joins one timeline point with its weather sample and the
// hazard advisories attached to it.
type PointConditions struct {
	// Point on the route timeline.
	Point route.TimelinePoint

	// Weather forecast for the point's location and time.
	Weather weather.Sample

	// Warnings attached to the point, in gateway order.
	Warnings []hazard.Warning
}

// PointAssessment is a correlated point together with its local score.
type PointAssessment struct {
	PointConditions

	// Risk scored from this point's conditions alone.
	Risk Assessment
}

// CurrentRisk is the blended current-location view. When the gateway
// supplies its own risk opinion it takes precedence over local scoring.
type CurrentRisk struct {
	// Sample is the current-location weather.
	Sample weather.Sample

	// Score on the 0-100 scale.
	Score float64

	// Level is the display band label.
	Level string

	// Description of the risk.
	Description string

	// FromProvider is true when the score came from the gateway rather
	// than local scoring.
	FromProvider bool
}

// RouteAssessment is the complete result of one engine run, built from a
// single consistent snapshot of inputs. It is never mutated after creation.
type RouteAssessment struct {
	// RouteID identifies the assessed route when known.
	RouteID string

	// DepartureTime the assessment was computed for.
	DepartureTime time.Time

	// Points are the correlated, individually scored timeline points.
	Points []PointAssessment

	// Overall is the aggregate assessment for the whole route.
	Overall Assessment

	// Current is the blended current-location view, when requested.
	Current *CurrentRisk

	// GeneratedAt stamps the run.
	GeneratedAt time.Time

	// Synthetic is true when any weather input was synthesized.
	Synthetic bool
}
