package risk

import (
	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/weather"
)

// Condition factor thresholds and impacts.
const (
	lowTemperatureThreshold  = -10.0  // °C
	highTemperatureThreshold = 35.0   // °C
	strongWindThreshold      = 10.0   // m/s
	lowVisibilityThreshold   = 5000.0 // m
	highHumidityThreshold    = 80.0   // %

	lowTemperatureImpact  = 30.0
	highTemperatureImpact = 15.0
	strongWindImpact      = 25.0
	lowVisibilityImpact   = 40.0
	highHumidityImpact    = 10.0

	maxRisk = 100.0
)

// severityImpact is the fixed score contribution per advisory severity.
func severityImpact(s hazard.Severity) float64 {
	switch s {
	case hazard.SeverityExtreme:
		return 60
	case hazard.SeverityHigh:
		return 40
	case hazard.SeverityMedium:
		return 25
	case hazard.SeverityLow:
		return 10
	default:
		return 0
	}
}

// Score rates a set of conditions. Two independent paths are summed: factors
// derived from the weather sample's measurements, and fixed contributions
// per attached advisory's severity. The sum clamps at 100.
//
// Score is pure and idempotent. Missing inputs degrade gracefully: a nil
// sample and no advisories yield a zero assessment, never an error.
func Score(current *weather.Sample, warnings []hazard.Warning) Assessment {
	var factors []Factor

	if current != nil {
		factors = append(factors, conditionFactors(current)...)
	}

	for _, w := range warnings {
		factors = append(factors, Factor{
			Name:        w.Type.Label(),
			Impact:      severityImpact(w.Severity),
			Description: w.Description,
		})
	}

	var total float64
	for _, f := range factors {
		total += f.Impact
	}
	if total > maxRisk {
		total = maxRisk
	}

	synthetic := current != nil && current.Synthetic

	return Assessment{
		OverallRisk:     total,
		Factors:         factors,
		Recommendations: Recommend(factors, total, warnings),
		Synthetic:       synthetic,
	}
}

func conditionFactors(s *weather.Sample) []Factor {
	var factors []Factor

	if s.Temperature < lowTemperatureThreshold {
		factors = append(factors, Factor{
			Name:        "Low temperature",
			Impact:      lowTemperatureImpact,
			Description: "Risk of icing on the road surface",
		})
	}
	if s.Temperature > highTemperatureThreshold {
		factors = append(factors, Factor{
			Name:        "High temperature",
			Impact:      highTemperatureImpact,
			Description: "Risk of vehicle overheating",
		})
	}
	if s.WindSpeed > strongWindThreshold {
		factors = append(factors, Factor{
			Name:        "Strong wind",
			Impact:      strongWindImpact,
			Description: "Crosswind affects vehicle stability",
		})
	}
	if s.HasVisibility() && s.Visibility < lowVisibilityThreshold {
		factors = append(factors, Factor{
			Name:        "Low visibility",
			Impact:      lowVisibilityImpact,
			Description: "Reduced sight distance",
		})
	}
	if s.Humidity > highHumidityThreshold {
		factors = append(factors, Factor{
			Name:        "High humidity",
			Impact:      highHumidityImpact,
			Description: "Fog may form",
		})
	}

	// Adverse condition codes are mentioned even when no threshold fired,
	// with no score of their own.
	if s.Condition.IsAdverse() {
		description := s.Description
		if description == "" {
			description = s.Condition.Label()
		}
		factors = append(factors, Factor{
			Name:        s.Condition.Label(),
			Impact:      0,
			Description: description,
		})
	}

	return factors
}
