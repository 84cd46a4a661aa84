package worker_test

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/watch"
	"github.com/cargowatch/cargowatch/internal/weather"
	"github.com/cargowatch/cargowatch/internal/weather/gateway"
	"github.com/cargowatch/cargowatch/internal/worker"
)

type stubWeather struct {
	forecastCalls atomic.Int64
	forecastErr   error
}

func (s *stubWeather) RouteForecast(_ context.Context, points []route.TimelinePoint, _ time.Time) ([]weather.Sample, error) {
	s.forecastCalls.Add(1)
	if s.forecastErr != nil {
		return nil, s.forecastErr
	}
	samples := make([]weather.Sample, len(points))
	for i, p := range points {
		samples[i] = weather.Sample{
			Timestamp:   p.EstimatedTime,
			Temperature: 15,
			Humidity:    50,
			WindSpeed:   3,
			Visibility:  10000,
			Condition:   weather.ConditionClear,
		}
	}
	return samples, nil
}

func (s *stubWeather) Current(_ context.Context, lat, lon float64) (*weather.CurrentConditions, error) {
	return &weather.CurrentConditions{Sample: weather.Sample{Lat: lat, Lon: lon, Temperature: 15}}, nil
}

type noHazards struct{}

func (noHazards) RouteWarnings(context.Context, []route.TimelinePoint, time.Time) ([]hazard.Warning, error) {
	return nil, nil
}

func testEngine(provider *stubWeather) *risk.Engine {
	return risk.NewEngine(risk.EngineConfig{
		Sampler: route.NewSampler(route.SamplerConfig{MaxPoints: 24}),
		Weather: provider,
		Hazards: noHazards{},
		Logger:  zerolog.New(io.Discard),
	})
}

func seedWatches(t *testing.T, repo watch.Repository, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := repo.Create(context.Background(), &watch.Watch{
			ID:    fmt.Sprintf("watch-%d", i),
			Label: fmt.Sprintf("route %d", i),
			Plan: route.Plan{
				Waypoints: []route.Coordinate{
					{Lat: 52.37, Lon: 4.89},
					{Lat: 51.92 + float64(i)*0.01, Lon: 4.48},
				},
				DistanceMeters: 75000,
				Duration:       time.Hour,
				DepartureTime:  time.Now().Add(time.Hour),
			},
			PollEvery: 5 * time.Minute,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
		require.NoError(t, err)
	}
}

func TestRefreshJob_Run(t *testing.T) {
	provider := &stubWeather{}
	repo := watch.NewInMemoryRepository()
	seedWatches(t, repo, 3)

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:     zerolog.New(io.Discard),
		Repository: repo,
		Engine:     testEngine(provider),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.TotalWatches)
	assert.Equal(t, 3, result.Successful)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Errors)

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(3), metrics.SuccessfulRefreshes)
	assert.False(t, metrics.LastRunAt.IsZero())
}

func TestRefreshJob_Run_FailuresCounted(t *testing.T) {
	provider := &stubWeather{
		forecastErr: &gateway.RejectedError{StatusCode: 422, Message: "rejected"},
	}
	repo := watch.NewInMemoryRepository()
	seedWatches(t, repo, 2)

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:     zerolog.New(io.Discard),
		Repository: repo,
		Engine:     testEngine(provider),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.Failed)
	assert.Zero(t, result.Successful)
	require.Len(t, result.Errors, 2)
	assert.NotEmpty(t, result.Errors[0].WatchID)
}

func TestRefreshJob_Run_EmptyRepository(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:     zerolog.New(io.Discard),
		Repository: watch.NewInMemoryRepository(),
		Engine:     testEngine(&stubWeather{}),
	})

	result := job.Run(context.Background())

	assert.Zero(t, result.TotalWatches)
	assert.Zero(t, result.Successful)
	assert.Zero(t, result.Failed)
}

func TestRefreshJob_Run_BypassesAssessmentCache(t *testing.T) {
	provider := &stubWeather{}
	repo := watch.NewInMemoryRepository()
	seedWatches(t, repo, 1)

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:     zerolog.New(io.Discard),
		Repository: repo,
		Engine:     testEngine(provider),
	})

	job.Run(context.Background())
	job.Run(context.Background())

	assert.Equal(t, int64(2), provider.forecastCalls.Load())
}
