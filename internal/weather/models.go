// Package weather defines the weather domain model and a caching service on
// top of pluggable forecast providers.
package weather

import (
	"context"
	"errors"
	"time"

	"github.com/cargowatch/cargowatch/internal/route"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Condition is the closed set of weather condition codes. New categories must
// be added here and to Label, never carried around as raw provider strings.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionSnow         Condition = "SNOW"
	ConditionIce          Condition = "ICE"
	ConditionFog          Condition = "FOG"
	ConditionWind         Condition = "WIND"
	ConditionStorm        Condition = "STORM"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Label returns the human-readable description for the condition.
func (c Condition) Label() string {
	switch c {
	case ConditionClear:
		return "Clear"
	case ConditionClouds:
		return "Cloudy"
	case ConditionRain:
		return "Rain"
	case ConditionDrizzle:
		return "Drizzle"
	case ConditionSnow:
		return "Snow"
	case ConditionIce:
		return "Ice"
	case ConditionFog:
		return "Fog"
	case ConditionWind:
		return "Strong wind"
	case ConditionStorm:
		return "Storm"
	case ConditionThunderstorm:
		return "Thunderstorm"
	default:
		return "Unknown conditions"
	}
}

// IsAdverse reports whether the condition itself warrants a mention in the
// risk factor list, independent of the measured values.
func (c Condition) IsAdverse() bool {
	switch c {
	case ConditionRain, ConditionDrizzle, ConditionSnow, ConditionIce,
		ConditionFog, ConditionWind, ConditionStorm, ConditionThunderstorm:
		return true
	default:
		return false
	}
}

// Sample is a weather measurement or forecast at a specific point and time.
type Sample struct {
	// Timestamp the sample is valid for.
	Timestamp time.Time

	// Location coordinates.
	Lat float64
	Lon float64

	// Temperature in Celsius.
	Temperature float64

	// Humidity percentage (0-100).
	Humidity float64

	// WindSpeed in m/s.
	WindSpeed float64

	// Visibility in meters. Zero means unrestricted or not reported.
	Visibility float64

	// Pressure in hPa.
	Pressure float64

	// Condition code and free-text description.
	Condition   Condition
	Description string

	// Synthetic marks samples produced by the fallback synthesizer rather
	// than a real provider.
	Synthetic bool
}

// HasVisibility reports whether the sample carries a visibility reading.
func (s *Sample) HasVisibility() bool {
	return s.Visibility > 0
}

// ProviderRisk carries a risk opinion supplied directly by the gateway for
// current-location weather. When present it overrides local scoring for the
// current-conditions view.
type ProviderRisk struct {
	Score       float64
	Level       string
	Description string
}

// CurrentConditions is the current-location weather together with the
// gateway's optional risk opinion.
type CurrentConditions struct {
	Sample       Sample
	ProviderRisk *ProviderRisk
}

// Provider supplies weather data for routes and single locations.
type Provider interface {
	// RouteForecast returns one sample per timeline point, in point order.
	RouteForecast(ctx context.Context, points []route.TimelinePoint, departure time.Time) ([]Sample, error)

	// Current returns current conditions for a single location.
	Current(ctx context.Context, lat, lon float64) (*CurrentConditions, error)

	// Name identifies the provider for logging.
	Name() string
}
