package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/route"
)

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache weather data (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.1).
	// Current-conditions lookups within the same cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors
	// (default: 1 hour).
	StaleIfErrorTTL time.Duration
}

// Service provides weather data with caching and stale-if-error behaviour.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	mu            sync.RWMutex
	currentCache  map[string]*cachedCurrent
	forecastCache map[string]*cachedForecast
}

type cachedCurrent struct {
	conditions *CurrentConditions
	fetchedAt  time.Time
	expiresAt  time.Time
}

type cachedForecast struct {
	samples   []Sample
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.1 // ~11km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 1 * time.Hour
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		currentCache:    make(map[string]*cachedCurrent),
		forecastCache:   make(map[string]*cachedForecast),
	}
}

// Current returns current conditions for a location, cached per grid cell.
func (s *Service) Current(ctx context.Context, lat, lon float64) (*CurrentConditions, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	key := s.gridKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.currentCache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.conditions, nil
	}
	s.mu.RUnlock()

	return s.fetchCurrent(ctx, lat, lon, key)
}

// RouteForecast returns one sample per timeline point. Results are cached per
// route signature so polling re-evaluations do not hammer the gateway.
func (s *Service) RouteForecast(ctx context.Context, points []route.TimelinePoint, departure time.Time) ([]Sample, error) {
	if len(points) == 0 {
		return nil, ErrNoDataForLocation
	}

	key := s.routeKey(points, departure)

	s.mu.RLock()
	if cached, ok := s.forecastCache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.samples, nil
	}
	s.mu.RUnlock()

	return s.fetchForecast(ctx, points, departure, key)
}

func (s *Service) fetchCurrent(ctx context.Context, lat, lon float64, key string) (*CurrentConditions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock.
	if cached, ok := s.currentCache[key]; ok && time.Now().Before(cached.expiresAt) {
		return cached.conditions, nil
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching current conditions from provider")

	conditions, err := s.provider.Current(ctx, lat, lon)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch current conditions")

		if cached, ok := s.currentCache[key]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Msg("serving stale current conditions due to provider error")
				return cached.conditions, nil
			}
		}

		return nil, fmt.Errorf("current conditions: %w", err)
	}

	now := time.Now()
	s.currentCache[key] = &cachedCurrent{
		conditions: conditions,
		fetchedAt:  now,
		expiresAt:  now.Add(s.cacheTTL),
	}

	return conditions, nil
}

func (s *Service) fetchForecast(ctx context.Context, points []route.TimelinePoint, departure time.Time, key string) ([]Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.forecastCache[key]; ok && time.Now().Before(cached.expiresAt) {
		return cached.samples, nil
	}

	s.logger.Debug().
		Int("points", len(points)).
		Time("departure", departure).
		Str("provider", s.provider.Name()).
		Msg("fetching route forecast from provider")

	samples, err := s.provider.RouteForecast(ctx, points, departure)
	if err != nil {
		s.logger.Error().Err(err).
			Int("points", len(points)).
			Msg("failed to fetch route forecast")

		if cached, ok := s.forecastCache[key]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Msg("serving stale route forecast due to provider error")
				return cached.samples, nil
			}
		}

		return nil, fmt.Errorf("route forecast: %w", err)
	}

	now := time.Now()
	s.forecastCache[key] = &cachedForecast{
		samples:   samples,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	return samples, nil
}

// gridKey quantizes a location to its cache grid cell.
func (s *Service) gridKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

// routeKey derives a cache key from the route endpoints, point count and
// departure time truncated to the minute.
func (s *Service) routeKey(points []route.TimelinePoint, departure time.Time) string {
	first := points[0].Coordinate
	last := points[len(points)-1].Coordinate
	return fmt.Sprintf("%.3f,%.3f:%.3f,%.3f:%d:%d",
		first.Lat, first.Lon, last.Lat, last.Lon,
		len(points), departure.Truncate(time.Minute).Unix(),
	)
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCache = make(map[string]*cachedCurrent)
	s.forecastCache = make(map[string]*cachedForecast)
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
