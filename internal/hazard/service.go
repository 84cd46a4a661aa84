package hazard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/route"
)

// ServiceConfig holds configuration for the hazard service.
type ServiceConfig struct {
	// Provider is the hazard advisory provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache advisories (default: 5 minutes).
	// Advisories change faster than forecasts, so the cache is shorter.
	CacheTTL time.Duration
}

// Service provides hazard advisories with short-lived caching.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]*cachedWarnings
}

type cachedWarnings struct {
	warnings  []Warning
	expiresAt time.Time
}

// NewService creates a new hazard service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		cache:    make(map[string]*cachedWarnings),
	}
}

// RouteWarnings returns advisories for the route, preserving provider order.
func (s *Service) RouteWarnings(ctx context.Context, points []route.TimelinePoint, departure time.Time) ([]Warning, error) {
	if len(points) == 0 {
		return nil, nil
	}

	key := s.routeKey(points, departure)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.warnings, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		return cached.warnings, nil
	}

	s.logger.Debug().
		Int("points", len(points)).
		Time("departure", departure).
		Str("provider", s.provider.Name()).
		Msg("fetching hazard warnings from provider")

	warnings, err := s.provider.RouteWarnings(ctx, points, departure)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch hazard warnings")
		return nil, fmt.Errorf("hazard warnings: %w", err)
	}

	s.cache[key] = &cachedWarnings{
		warnings:  warnings,
		expiresAt: time.Now().Add(s.cacheTTL),
	}

	return warnings, nil
}

func (s *Service) routeKey(points []route.TimelinePoint, departure time.Time) string {
	first := points[0].Coordinate
	last := points[len(points)-1].Coordinate
	return fmt.Sprintf("%.3f,%.3f:%.3f,%.3f:%d",
		first.Lat, first.Lon, last.Lat, last.Lon,
		departure.Truncate(time.Minute).Unix(),
	)
}

// InvalidateCache clears all cached advisories.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedWarnings)
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
