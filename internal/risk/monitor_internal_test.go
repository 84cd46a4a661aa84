package risk

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/weather"
	"github.com/cargowatch/cargowatch/internal/weather/gateway"
)

// gatedWeather blocks its first forecast call until released and fails it,
// while later calls succeed immediately. This recreates a poll run that
// outlives the next one, the overlap the sequence numbers exist for.
type gatedWeather struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedWeather) RouteForecast(_ context.Context, points []route.TimelinePoint, _ time.Time) ([]weather.Sample, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
		return nil, fmt.Errorf("route analysis: %w", gateway.ErrUnavailable)
	}

	samples := make([]weather.Sample, len(points))
	for i, p := range points {
		samples[i] = weather.Sample{
			Timestamp:   p.EstimatedTime,
			Temperature: 14,
			Humidity:    50,
			WindSpeed:   2,
			Visibility:  10000,
			Condition:   weather.ConditionClear,
		}
	}
	return samples, nil
}

func (g *gatedWeather) Current(context.Context, float64, float64) (*weather.CurrentConditions, error) {
	return &weather.CurrentConditions{}, nil
}

type quietHazards struct{}

func (quietHazards) RouteWarnings(context.Context, []route.TimelinePoint, time.Time) ([]hazard.Warning, error) {
	return nil, nil
}

func TestMonitor_DiscardsStaleRunResult(t *testing.T) {
	w := &gatedWeather{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	monitor := NewMonitor(MonitorConfig{
		Engine: NewEngine(EngineConfig{
			Sampler: route.NewSampler(route.SamplerConfig{}),
			Weather: w,
			Hazards: quietHazards{},
			Logger:  zerolog.Nop(),
		}),
		Plan: route.Plan{
			Waypoints: []route.Coordinate{
				{Lat: 52.37, Lon: 4.89},
				{Lat: 51.92, Lon: 4.48},
			},
			DistanceMeters: 75000,
			Duration:       time.Hour,
			DepartureTime:  time.Now().Add(2 * time.Hour),
		},
		Logger: zerolog.Nop(),
	})

	// First run stalls inside the forecast fetch.
	slowDone := make(chan struct{})
	go func() {
		monitor.runOnce(context.Background())
		close(slowDone)
	}()
	<-w.entered

	// A second run starts and finishes while the first is still in flight.
	monitor.runOnce(context.Background())

	snap := monitor.Snapshot()
	require.Equal(t, StateReady, snap.State)
	require.NotNil(t, snap.Assessment)
	accepted := snap.Assessment

	// Let the first run finish. It fails, so accepting it would flip the
	// monitor to ERROR and hide the newer assessment.
	close(w.release)
	<-slowDone

	snap = monitor.Snapshot()
	assert.Equal(t, StateReady, snap.State, "stale failed run must not roll the state back")
	assert.Same(t, accepted, snap.Assessment)
	assert.NoError(t, snap.Err)
}
