package risk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/weather"
)

var correlateDeparture = time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)

func timelineAt(times ...time.Duration) []route.TimelinePoint {
	points := make([]route.TimelinePoint, len(times))
	for i, offset := range times {
		points[i] = route.TimelinePoint{
			Index:         i,
			Coordinate:    route.Coordinate{Lat: 52.0 + float64(i)*0.1, Lon: 5.0},
			EstimatedTime: correlateDeparture.Add(offset),
		}
	}
	return points
}

func samplesFor(points []route.TimelinePoint) []weather.Sample {
	samples := make([]weather.Sample, len(points))
	for i, p := range points {
		samples[i] = weather.Sample{
			Timestamp:   p.EstimatedTime,
			Lat:         p.Coordinate.Lat,
			Lon:         p.Coordinate.Lon,
			Temperature: float64(i),
		}
	}
	return samples
}

func warningStarting(offset time.Duration, severity hazard.Severity) hazard.Warning {
	return hazard.Warning{
		Type:        hazard.TypeStorm,
		Severity:    severity,
		WindowStart: correlateDeparture.Add(offset),
		WindowEnd:   correlateDeparture.Add(offset + time.Hour),
	}
}

func TestCorrelate_PairsWeatherByIndex(t *testing.T) {
	points := timelineAt(0, time.Hour, 2*time.Hour)
	samples := samplesFor(points)

	correlated := risk.Correlate(points, samples, nil)
	require.Len(t, correlated, 3)

	for i, pc := range correlated {
		assert.Equal(t, points[i], pc.Point)
		assert.InDelta(t, float64(i), pc.Weather.Temperature, 0.001)
		assert.Empty(t, pc.Warnings)
	}
}

func TestCorrelate_AttachWindowBoundary(t *testing.T) {
	points := timelineAt(0, 2*time.Hour)

	within := warningStarting(30*time.Minute, hazard.SeverityMedium)
	beyond := warningStarting(31*time.Minute, hazard.SeverityMedium)

	correlated := risk.Correlate(points, samplesFor(points), []hazard.Warning{within, beyond})

	require.Len(t, correlated[0].Warnings, 1, "exactly 30 minutes attaches, 31 does not")
	assert.Equal(t, within.WindowStart, correlated[0].Warnings[0].WindowStart)
	assert.Empty(t, correlated[1].Warnings)
}

func TestCorrelate_WarningAttachesToMultiplePoints(t *testing.T) {
	points := timelineAt(0, 30*time.Minute, 3*time.Hour)
	w := warningStarting(15*time.Minute, hazard.SeverityHigh)

	correlated := risk.Correlate(points, samplesFor(points), []hazard.Warning{w})

	assert.Len(t, correlated[0].Warnings, 1)
	assert.Len(t, correlated[1].Warnings, 1)
	assert.Empty(t, correlated[2].Warnings)
}

func TestCorrelate_PreservesGatewayOrder(t *testing.T) {
	points := timelineAt(0)

	first := warningStarting(10*time.Minute, hazard.SeverityLow)
	first.Description = "first"
	second := warningStarting(5*time.Minute, hazard.SeverityExtreme)
	second.Description = "second"

	correlated := risk.Correlate(points, samplesFor(points), []hazard.Warning{first, second})

	require.Len(t, correlated[0].Warnings, 2)
	assert.Equal(t, "first", correlated[0].Warnings[0].Description)
	assert.Equal(t, "second", correlated[0].Warnings[1].Description)
}

func TestCorrelate_DoesNotMutateInputs(t *testing.T) {
	points := timelineAt(0, time.Hour)
	samples := samplesFor(points)
	warnings := []hazard.Warning{warningStarting(0, hazard.SeverityLow)}

	pointsCopy := append([]route.TimelinePoint(nil), points...)
	samplesCopy := append([]weather.Sample(nil), samples...)
	warningsCopy := append([]hazard.Warning(nil), warnings...)

	_ = risk.Correlate(points, samples, warnings)

	assert.Equal(t, pointsCopy, points)
	assert.Equal(t, samplesCopy, samples)
	assert.Equal(t, warningsCopy, warnings)
}

func TestCorrelate_MissingSamplesLeaveZeroWeather(t *testing.T) {
	points := timelineAt(0, time.Hour)
	samples := samplesFor(points)[:1]

	correlated := risk.Correlate(points, samples, nil)
	require.Len(t, correlated, 2)
	assert.Equal(t, weather.Sample{}, correlated[1].Weather)
}
