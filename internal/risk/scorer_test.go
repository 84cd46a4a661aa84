package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/weather"
)

func mildSample() *weather.Sample {
	return &weather.Sample{
		Temperature: 12,
		Humidity:    55,
		WindSpeed:   3,
		Visibility:  9000,
		Condition:   weather.ConditionClear,
	}
}

func factorNames(a risk.Assessment) []string {
	names := make([]string, len(a.Factors))
	for i, f := range a.Factors {
		names[i] = f.Name
	}
	return names
}

func TestScore_MildConditionsScoreZero(t *testing.T) {
	assessment := risk.Score(mildSample(), nil)

	assert.Zero(t, assessment.OverallRisk)
	assert.Empty(t, assessment.Factors)
	assert.Empty(t, assessment.Recommendations)
	assert.Equal(t, risk.BandLow, assessment.Band())
}

func TestScore_NilInputsNeverFail(t *testing.T) {
	assessment := risk.Score(nil, nil)

	assert.Zero(t, assessment.OverallRisk)
	assert.Empty(t, assessment.Factors)
	assert.Empty(t, assessment.Recommendations)
}

func TestScore_ConditionFactors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*weather.Sample)
		factorName string
		impact     float64
	}{
		{
			name:       "low temperature",
			mutate:     func(s *weather.Sample) { s.Temperature = -15 },
			factorName: "Low temperature",
			impact:     30,
		},
		{
			name:       "high temperature",
			mutate:     func(s *weather.Sample) { s.Temperature = 38 },
			factorName: "High temperature",
			impact:     15,
		},
		{
			name:       "strong wind",
			mutate:     func(s *weather.Sample) { s.WindSpeed = 14 },
			factorName: "Strong wind",
			impact:     25,
		},
		{
			name:       "low visibility",
			mutate:     func(s *weather.Sample) { s.Visibility = 2000 },
			factorName: "Low visibility",
			impact:     40,
		},
		{
			name:       "high humidity",
			mutate:     func(s *weather.Sample) { s.Humidity = 92 },
			factorName: "High humidity",
			impact:     10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample := mildSample()
			tt.mutate(sample)

			assessment := risk.Score(sample, nil)

			require.Len(t, assessment.Factors, 1)
			assert.Equal(t, tt.factorName, assessment.Factors[0].Name)
			assert.InDelta(t, tt.impact, assessment.Factors[0].Impact, 0.001)
			assert.InDelta(t, tt.impact, assessment.OverallRisk, 0.001)
		})
	}
}

func TestScore_UnreportedVisibilityIsNotLow(t *testing.T) {
	sample := mildSample()
	sample.Visibility = 0

	assessment := risk.Score(sample, nil)
	assert.NotContains(t, factorNames(assessment), "Low visibility")
}

func TestScore_AdverseConditionIsInformational(t *testing.T) {
	sample := mildSample()
	sample.Condition = weather.ConditionRain
	sample.Description = "light rain"

	assessment := risk.Score(sample, nil)

	require.Len(t, assessment.Factors, 1)
	assert.Equal(t, "Rain", assessment.Factors[0].Name)
	assert.Zero(t, assessment.Factors[0].Impact)
	assert.Equal(t, "light rain", assessment.Factors[0].Description)
	assert.Zero(t, assessment.OverallRisk, "informational factors do not score")
}

func TestScore_SeverityContributions(t *testing.T) {
	tests := []struct {
		severity hazard.Severity
		impact   float64
	}{
		{hazard.SeverityExtreme, 60},
		{hazard.SeverityHigh, 40},
		{hazard.SeverityMedium, 25},
		{hazard.SeverityLow, 10},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			warnings := []hazard.Warning{{Type: hazard.TypeStorm, Severity: tt.severity}}
			assessment := risk.Score(mildSample(), warnings)
			assert.InDelta(t, tt.impact, assessment.OverallRisk, 0.001)
		})
	}
}

func TestScore_ClampsAtHundred(t *testing.T) {
	warnings := make([]hazard.Warning, 10)
	for i := range warnings {
		warnings[i] = hazard.Warning{Type: hazard.TypeIce, Severity: hazard.SeverityExtreme}
	}

	assessment := risk.Score(mildSample(), warnings)

	assert.InDelta(t, 100.0, assessment.OverallRisk, 0.001)
	assert.Equal(t, risk.BandExtreme, assessment.Band())
}

func TestScore_Idempotent(t *testing.T) {
	sample := mildSample()
	sample.Temperature = -15
	sample.WindSpeed = 12
	warnings := []hazard.Warning{{Type: hazard.TypeSnow, Severity: hazard.SeverityHigh}}

	first := risk.Score(sample, warnings)
	second := risk.Score(sample, warnings)

	assert.Equal(t, first, second)
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		score float64
		band  risk.Band
	}{
		{0, risk.BandLow},
		{24.9, risk.BandLow},
		{25, risk.BandMedium},
		{49.9, risk.BandMedium},
		{50, risk.BandHigh},
		{74.9, risk.BandHigh},
		{75, risk.BandExtreme},
		{100, risk.BandExtreme},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.band, risk.BandFor(tt.score), "score %.1f", tt.score)
	}
}

func TestRecommend_HighRiskAddsPostpone(t *testing.T) {
	out := risk.Recommend(nil, 51, nil)

	require.Len(t, out, 2)
	assert.Equal(t, risk.RecommendPostpone, out[0])
	assert.Equal(t, risk.RecommendFollowingDistance, out[1])
}

func TestRecommend_ThresholdIsExclusive(t *testing.T) {
	assert.Empty(t, risk.Recommend(nil, 50, nil))
}

func TestRecommend_FactorRules(t *testing.T) {
	factors := []risk.Factor{
		{Name: "Low temperature", Impact: 30},
		{Name: "Strong wind", Impact: 25},
		{Name: "Low visibility", Impact: 40},
	}

	out := risk.Recommend(factors, 0, nil)

	assert.Equal(t, []string{
		risk.RecommendVehicleCheck,
		risk.RecommendReduceSpeed,
		risk.RecommendHeadlights,
	}, out)
}

func TestRecommend_DeduplicatesPreservingOrder(t *testing.T) {
	factors := []risk.Factor{
		{Name: "Low temperature", Impact: 30},
		{Name: "High temperature", Impact: 15},
	}
	warnings := []hazard.Warning{
		{Recommendation: "Avoid exposed bridges"},
		{Recommendation: "Avoid exposed bridges"},
	}

	out := risk.Recommend(factors, 60, warnings)

	assert.Equal(t, []string{
		risk.RecommendPostpone,
		risk.RecommendFollowingDistance,
		risk.RecommendVehicleCheck,
		"Avoid exposed bridges",
	}, out)
}

func TestRecommend_AdvisoryTextIncludedVerbatim(t *testing.T) {
	warnings := []hazard.Warning{{Recommendation: "Chains required above 800m"}}

	out := risk.Recommend(nil, 0, warnings)
	assert.Equal(t, []string{"Chains required above 800m"}, out)
}
