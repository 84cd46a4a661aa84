package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/provider/resilience"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/weather"
	"github.com/cargowatch/cargowatch/internal/weather/gateway"
)

func testTimeline(t *testing.T, departure time.Time) []route.TimelinePoint {
	t.Helper()

	plan := route.Plan{
		Waypoints: []route.Coordinate{
			{Lat: 52.37, Lon: 4.89},
			{Lat: 52.09, Lon: 5.12},
		},
		DistanceMeters: 45000,
		Duration:       45 * time.Minute,
		DepartureTime:  departure,
	}

	sampler := route.NewSampler(route.SamplerConfig{})
	points, err := sampler.Sample(plan, 3)
	require.NoError(t, err)
	return points
}

// fastClient keeps retries short so failure tests do not crawl.
func fastClient(name string) *resilience.Client {
	return resilience.NewClient(resilience.ClientConfig{
		Name:            name,
		Timeout:         2 * time.Second,
		MaxRetries:      1,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
	})
}

func TestClient_RouteForecast(t *testing.T) {
	departure := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/weather/route-analysis", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var body struct {
			StartLat  float64 `json:"startLat"`
			Waypoints []struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			} `json:"waypoints"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.InDelta(t, 52.37, body.StartLat, 0.001)
		assert.Len(t, body.Waypoints, 3)

		_, _ = w.Write([]byte(`{
			"current": {"temperature": 4, "humidity": 70, "windSpeed": 3, "condition": "Clouds"},
			"forecast": [
				{"date": "2026-03-10", "temperatureMin": -2, "temperatureMax": 6,
				 "humidity": 85, "windSpeed": 12, "description": "light rain", "icon": "10d"}
			]
		}`))
	}))
	defer server.Close()

	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL: server.URL,
		APIKey:  "secret",
		Logger:  zerolog.Nop(),
	})

	points := testTimeline(t, departure)

	samples, err := client.RouteForecast(context.Background(), points, departure)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	for i, sample := range samples {
		assert.Equal(t, points[i].EstimatedTime, sample.Timestamp)
		assert.InDelta(t, 2.0, sample.Temperature, 0.001, "midpoint of min/max")
		assert.InDelta(t, 85.0, sample.Humidity, 0.001)
		assert.InDelta(t, 12.0, sample.WindSpeed, 0.001)
		assert.Equal(t, weather.ConditionRain, sample.Condition)
		assert.False(t, sample.Synthetic)
	}
}

func TestClient_RouteForecast_FallsBackToCurrentForMissingDay(t *testing.T) {
	departure := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"current": {"temperature": 7, "humidity": 55, "windSpeed": 2, "condition": "Clear"},
			"forecast": [
				{"date": "2026-03-11", "temperatureMin": 0, "temperatureMax": 4, "humidity": 90, "windSpeed": 8}
			]
		}`))
	}))
	defer server.Close()

	client := gateway.NewClient(gateway.ClientConfig{BaseURL: server.URL, Logger: zerolog.Nop()})

	points := testTimeline(t, departure)
	samples, err := client.RouteForecast(context.Background(), points, departure)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.InDelta(t, 7.0, samples[0].Temperature, 0.001)
	assert.Equal(t, weather.ConditionClear, samples[0].Condition)
	assert.Equal(t, points[0].EstimatedTime, samples[0].Timestamp)
}

func TestClient_Current_WithProviderRisk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/weather/current", r.URL.Path)
		assert.Equal(t, "52.370000", r.URL.Query().Get("lat"))

		_, _ = w.Write([]byte(`{
			"temperature": -12, "humidity": 88, "windSpeed": 4,
			"visibility": 3000, "pressure": 1013,
			"condition": "Snow", "description": "heavy snow",
			"riskScore": 72, "riskLevel": "High", "riskDescription": "Dangerous driving conditions"
		}`))
	}))
	defer server.Close()

	client := gateway.NewClient(gateway.ClientConfig{BaseURL: server.URL, Logger: zerolog.Nop()})

	conditions, err := client.Current(context.Background(), 52.37, 4.89)
	require.NoError(t, err)

	assert.InDelta(t, -12.0, conditions.Sample.Temperature, 0.001)
	assert.Equal(t, weather.ConditionSnow, conditions.Sample.Condition)
	assert.True(t, conditions.Sample.HasVisibility())

	require.NotNil(t, conditions.ProviderRisk)
	assert.InDelta(t, 72.0, conditions.ProviderRisk.Score, 0.001)
	assert.Equal(t, "High", conditions.ProviderRisk.Level)
}

func TestClient_Current_WithoutProviderRisk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"temperature": 10, "condition": "Clear"}`))
	}))
	defer server.Close()

	client := gateway.NewClient(gateway.ClientConfig{BaseURL: server.URL, Logger: zerolog.Nop()})

	conditions, err := client.Current(context.Background(), 52.37, 4.89)
	require.NoError(t, err)
	assert.Nil(t, conditions.ProviderRisk)
}

func TestClient_RouteWarnings(t *testing.T) {
	departure := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/weather/hazard-warnings", r.URL.Path)

		var body struct {
			Route         []struct{ Lat, Lon float64 } `json:"route"`
			DepartureTime time.Time                    `json:"departureTime"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Route, 3)
		assert.True(t, body.DepartureTime.Equal(departure))

		_, _ = w.Write([]byte(`[
			{"type": "strong_wind", "severity": "high",
			 "timeStart": "2026-03-10T08:15:00Z", "timeEnd": "2026-03-10T10:00:00Z",
			 "lat": 52.2, "lon": 5.0, "description": "Gusts up to 90 km/h",
			 "recommendation": "Avoid exposed bridges", "distanceFromStart": 20000},
			{"type": "ICE", "severity": "EXTREME",
			 "timeStart": "2026-03-10T08:00:00Z", "timeEnd": "2026-03-10T09:00:00Z",
			 "lat": 52.1, "lon": 5.1, "description": "Black ice"}
		]`))
	}))
	defer server.Close()

	client := gateway.NewClient(gateway.ClientConfig{BaseURL: server.URL, Logger: zerolog.Nop()})

	warnings, err := client.RouteWarnings(context.Background(), testTimeline(t, departure), departure)
	require.NoError(t, err)
	require.Len(t, warnings, 2)

	assert.Equal(t, hazard.TypeStrongWind, warnings[0].Type)
	assert.Equal(t, hazard.SeverityHigh, warnings[0].Severity)
	assert.Equal(t, "Avoid exposed bridges", warnings[0].Recommendation)
	assert.InDelta(t, 20000.0, warnings[0].DistanceFromStart, 0.001)

	assert.Equal(t, hazard.TypeIce, warnings[1].Type)
	assert.Equal(t, hazard.SeverityExtreme, warnings[1].Severity)
	assert.Less(t, warnings[1].DistanceFromStart, 0.0, "unreported distance is negative")
}

func TestClient_NotFoundIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: fastClient("test-404"),
		Logger:     zerolog.Nop(),
	})

	_, err := client.Current(context.Background(), 52.37, 4.89)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: fastClient("test-5xx"),
		Logger:     zerolog.Nop(),
	})

	_, err := client.Current(context.Background(), 52.37, 4.89)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestClient_ConnectionRefusedIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.Close() // refuse everything

	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: fastClient("test-refused"),
		Logger:     zerolog.Nop(),
	})

	departure := time.Now()
	_, err := client.RouteForecast(context.Background(), testTimeline(t, departure), departure)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestClient_BadRequestIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "waypoints outside coverage area"}`))
	}))
	defer server.Close()

	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: fastClient("test-rejected"),
		Logger:     zerolog.Nop(),
	})

	departure := time.Now()
	_, err := client.RouteForecast(context.Background(), testTimeline(t, departure), departure)

	var rejected *gateway.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.StatusCode)
	assert.Equal(t, "waypoints outside coverage area", rejected.Message)
	assert.NotErrorIs(t, err, gateway.ErrUnavailable)
}

func TestClient_RecordsOutcomesInRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"temperature": 10}`))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	httpClient := fastClient(gateway.ProviderName)
	registry.Register(gateway.ProviderName, httpClient)

	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: httpClient,
		Registry:   registry,
		Logger:     zerolog.Nop(),
	})

	_, err := client.Current(context.Background(), 52.37, 4.89)
	require.NoError(t, err)

	health := registry.Health(gateway.ProviderName)
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
}
