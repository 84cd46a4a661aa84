package models

import (
	"time"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/weather"
)

// AssessRouteRequest is the body of POST /v1/routes:assess. The route geometry
// is given either as explicit waypoints or as an encoded polyline.
type AssessRouteRequest struct {
	Waypoints       []Point   `json:"waypoints,omitempty" validate:"omitempty,min=2,dive"`
	Polyline        string    `json:"polyline,omitempty"`
	DistanceMeters  float64   `json:"distanceMeters,omitempty" validate:"omitempty,gt=0"`
	DurationSeconds int       `json:"durationSeconds" validate:"required,gt=0"`
	DepartureTime   time.Time `json:"departureTime" validate:"required"`
	PointCount      int       `json:"pointCount,omitempty" validate:"omitempty,min=2,max=24"`
	CurrentLocation *Point    `json:"currentLocation,omitempty"`
	BypassCache     bool      `json:"bypassCache,omitempty"`
}

// RiskFactor is one contribution to a risk score.
type RiskFactor struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"`
	Description string  `json:"description"`
}

// RiskAssessment is a scored set of conditions with recommendations.
type RiskAssessment struct {
	OverallRisk     float64      `json:"overallRisk"`
	RiskLevel       string       `json:"riskLevel"`
	Factors         []RiskFactor `json:"factors"`
	Recommendations []string     `json:"recommendations"`
	Synthetic       bool         `json:"synthetic,omitempty"`
}

// WeatherSample is a weather measurement or forecast at a point and time.
type WeatherSample struct {
	Timestamp   Timestamp `json:"timestamp"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Visibility  *float64  `json:"visibility,omitempty"`
	Pressure    float64   `json:"pressure,omitempty"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Synthetic   bool      `json:"synthetic,omitempty"`
}

// HazardWarning is a severe-weather advisory along a route.
type HazardWarning struct {
	Type              string    `json:"type"`
	Severity          string    `json:"severity"`
	WindowStart       Timestamp `json:"windowStart"`
	WindowEnd         Timestamp `json:"windowEnd"`
	Location          Point     `json:"location"`
	Description       string    `json:"description"`
	Recommendation    string    `json:"recommendation,omitempty"`
	DistanceFromStart *float64  `json:"distanceFromStart,omitempty"`
}

// PointAssessment is one correlated timeline point with its local score.
type PointAssessment struct {
	Index             int             `json:"index"`
	Location          Point           `json:"location"`
	EstimatedTime     Timestamp       `json:"estimatedTime"`
	DistanceFromStart float64         `json:"distanceFromStart"`
	Weather           WeatherSample   `json:"weather"`
	Warnings          []HazardWarning `json:"warnings,omitempty"`
	Risk              RiskAssessment  `json:"risk"`
}

// CurrentRisk is the blended current-location view.
type CurrentRisk struct {
	Weather      WeatherSample `json:"weather"`
	Score        float64       `json:"score"`
	Level        string        `json:"level"`
	Description  string        `json:"description"`
	FromProvider bool          `json:"fromProvider"`
}

// RouteAssessmentResponse is the result of one route assessment.
type RouteAssessmentResponse struct {
	RouteID       string            `json:"routeId,omitempty"`
	DepartureTime Timestamp         `json:"departureTime"`
	GeneratedAt   Timestamp         `json:"generatedAt"`
	Synthetic     bool              `json:"synthetic"`
	Overall       RiskAssessment    `json:"overall"`
	Points        []PointAssessment `json:"points"`
	Current       *CurrentRisk      `json:"current,omitempty"`
}

// CurrentWeatherResponse is the body of GET /v1/weather/current.
type CurrentWeatherResponse struct {
	Weather WeatherSample `json:"weather"`
	Risk    CurrentRisk   `json:"risk"`
}

// NewRiskAssessment maps a domain assessment into its API model.
func NewRiskAssessment(a risk.Assessment) RiskAssessment {
	factors := make([]RiskFactor, len(a.Factors))
	for i, f := range a.Factors {
		factors[i] = RiskFactor{Name: f.Name, Impact: f.Impact, Description: f.Description}
	}
	recommendations := a.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}
	return RiskAssessment{
		OverallRisk:     a.OverallRisk,
		RiskLevel:       a.Band().Label(),
		Factors:         factors,
		Recommendations: recommendations,
		Synthetic:       a.Synthetic,
	}
}

// NewWeatherSample maps a domain weather sample into its API model.
func NewWeatherSample(s weather.Sample) WeatherSample {
	m := WeatherSample{
		Timestamp:   Timestamp(s.Timestamp),
		Lat:         s.Lat,
		Lon:         s.Lon,
		Temperature: s.Temperature,
		Humidity:    s.Humidity,
		WindSpeed:   s.WindSpeed,
		Pressure:    s.Pressure,
		Condition:   string(s.Condition),
		Description: s.Description,
		Synthetic:   s.Synthetic,
	}
	if s.HasVisibility() {
		visibility := s.Visibility
		m.Visibility = &visibility
	}
	return m
}

// NewHazardWarning maps a domain advisory into its API model.
func NewHazardWarning(w hazard.Warning) HazardWarning {
	m := HazardWarning{
		Type:           string(w.Type),
		Severity:       string(w.Severity),
		WindowStart:    Timestamp(w.WindowStart),
		WindowEnd:      Timestamp(w.WindowEnd),
		Location:       Point{Lat: w.Coordinate.Lat, Lon: w.Coordinate.Lon},
		Description:    w.Description,
		Recommendation: w.Recommendation,
	}
	if w.DistanceFromStart >= 0 {
		distance := w.DistanceFromStart
		m.DistanceFromStart = &distance
	}
	return m
}

// NewRouteAssessment maps a domain route assessment into its API model.
func NewRouteAssessment(a *risk.RouteAssessment) RouteAssessmentResponse {
	points := make([]PointAssessment, len(a.Points))
	for i, p := range a.Points {
		warnings := make([]HazardWarning, len(p.Warnings))
		for j, w := range p.Warnings {
			warnings[j] = NewHazardWarning(w)
		}
		points[i] = PointAssessment{
			Index:             p.Point.Index,
			Location:          Point{Lat: p.Point.Coordinate.Lat, Lon: p.Point.Coordinate.Lon},
			EstimatedTime:     Timestamp(p.Point.EstimatedTime),
			DistanceFromStart: p.Point.DistanceFromStart,
			Weather:           NewWeatherSample(p.Weather),
			Warnings:          warnings,
			Risk:              NewRiskAssessment(p.Risk),
		}
	}

	resp := RouteAssessmentResponse{
		RouteID:       a.RouteID,
		DepartureTime: Timestamp(a.DepartureTime),
		GeneratedAt:   Timestamp(a.GeneratedAt),
		Synthetic:     a.Synthetic,
		Overall:       NewRiskAssessment(a.Overall),
		Points:        points,
	}
	if a.Current != nil {
		resp.Current = newCurrentRisk(*a.Current)
	}
	return resp
}

func newCurrentRisk(c risk.CurrentRisk) *CurrentRisk {
	return &CurrentRisk{
		Weather:      NewWeatherSample(c.Sample),
		Score:        c.Score,
		Level:        c.Level,
		Description:  c.Description,
		FromProvider: c.FromProvider,
	}
}
