package risk

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/weather"
	"github.com/cargowatch/cargowatch/internal/weather/gateway"
)

// WeatherSource supplies forecast and current-location weather.
type WeatherSource interface {
	RouteForecast(ctx context.Context, points []route.TimelinePoint, departure time.Time) ([]weather.Sample, error)
	Current(ctx context.Context, lat, lon float64) (*weather.CurrentConditions, error)
}

// HazardSource supplies hazard advisories for routes.
type HazardSource interface {
	RouteWarnings(ctx context.Context, points []route.TimelinePoint, departure time.Time) ([]hazard.Warning, error)
}

// EngineConfig holds the engine's collaborators.
type EngineConfig struct {
	// Sampler produces the route timeline.
	Sampler *route.Sampler

	// Weather is the primary weather source.
	Weather WeatherSource

	// Hazards is the hazard advisory source.
	Hazards HazardSource

	// Fallback is the synthetic weather source, used for the forecast when
	// the primary is unavailable and UseSyntheticFallback is on.
	Fallback WeatherSource

	// UseSyntheticFallback engages the fallback on unavailable forecasts.
	// When off, an unavailable forecast fails the run.
	UseSyntheticFallback bool

	// CacheTTL for completed assessments. Zero uses the cache default.
	CacheTTL time.Duration

	// Logger for engine operations.
	Logger zerolog.Logger
}

// AssessOptions tune a single assessment run.
type AssessOptions struct {
	// RouteID keys the assessment cache. Empty disables caching.
	RouteID string

	// PointCount requests a specific timeline resolution. Non-positive
	// derives the count from the route geometry.
	PointCount int

	// CurrentLocation, when set, adds a current-conditions fetch blended
	// into the result.
	CurrentLocation *route.Coordinate

	// BypassCache forces a fresh run even when a cached assessment exists.
	BypassCache bool
}

// Engine runs the assessment pipeline: sample, fetch concurrently, correlate,
// score, recommend.
type Engine struct {
	sampler     *route.Sampler
	weather     WeatherSource
	hazards     HazardSource
	fallback    WeatherSource
	useFallback bool
	cache       *Cache
	logger      zerolog.Logger
}

// NewEngine creates an assessment engine.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		sampler:     cfg.Sampler,
		weather:     cfg.Weather,
		hazards:     cfg.Hazards,
		fallback:    cfg.Fallback,
		useFallback: cfg.UseSyntheticFallback,
		cache:       NewCache(cfg.CacheTTL),
		logger:      cfg.Logger,
	}
}

// AssessRoute runs one full assessment. Validation and sampling happen before
// any I/O, so an invalid plan never touches the gateway. The forecast, hazard
// and current-location fetches run concurrently, each with its own failure
// policy: the forecast may fall back to synthetic data, missing hazards
// become an empty set, and a failed current-location fetch is skipped.
// Rejected requests always fail the run.
func (e *Engine) AssessRoute(ctx context.Context, plan route.Plan, opts AssessOptions) (*RouteAssessment, error) {
	points, err := e.sampler.Sample(plan, opts.PointCount)
	if err != nil {
		return nil, err
	}

	if opts.RouteID != "" && !opts.BypassCache {
		if cached := e.cache.Get(opts.RouteID, plan.DepartureTime); cached != nil {
			return cached, nil
		}
	}

	var (
		samples   []weather.Sample
		warnings  []hazard.Warning
		current   *weather.CurrentConditions
		synthetic bool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fetched, err := e.weather.RouteForecast(gctx, points, plan.DepartureTime)
		if err == nil {
			samples = fetched
			return nil
		}

		if e.useFallback && e.fallback != nil && errors.Is(err, gateway.ErrUnavailable) {
			e.logger.Warn().Err(err).Msg("forecast unavailable, synthesizing weather data")
			fetched, fallbackErr := e.fallback.RouteForecast(gctx, points, plan.DepartureTime)
			if fallbackErr != nil {
				return fallbackErr
			}
			samples = fetched
			synthetic = true
			return nil
		}

		return err
	})

	g.Go(func() error {
		fetched, err := e.hazards.RouteWarnings(gctx, points, plan.DepartureTime)
		if err != nil {
			var rejected *gateway.RejectedError
			if errors.As(err, &rejected) {
				return err
			}
			// No reachable hazard source means no known hazards.
			e.logger.Warn().Err(err).Msg("hazard warnings unavailable, assuming none")
			return nil
		}
		warnings = fetched
		return nil
	})

	if opts.CurrentLocation != nil {
		location := *opts.CurrentLocation
		g.Go(func() error {
			fetched, err := e.weather.Current(gctx, location.Lat, location.Lon)
			if err != nil {
				// The current-location blend is optional; the route
				// assessment stands without it.
				e.logger.Warn().Err(err).Msg("current conditions unavailable, skipping blend")
				return nil
			}
			current = fetched
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now()
	correlated := Correlate(points, samples, warnings)

	pointAssessments := make([]PointAssessment, len(correlated))
	for i, pc := range correlated {
		pointRisk := Score(&pc.Weather, pc.Warnings)
		pointRisk.GeneratedAt = now
		pointAssessments[i] = PointAssessment{PointConditions: pc, Risk: pointRisk}
	}

	representative := representativeSample(current, samples)
	overall := Score(representative, warnings)
	overall.GeneratedAt = now
	overall.Synthetic = synthetic

	assessment := &RouteAssessment{
		RouteID:       opts.RouteID,
		DepartureTime: plan.DepartureTime,
		Points:        pointAssessments,
		Overall:       overall,
		Current:       BlendCurrent(current),
		GeneratedAt:   now,
		Synthetic:     synthetic,
	}

	if opts.RouteID != "" {
		e.cache.Put(opts.RouteID, plan.DepartureTime, assessment)
	}

	return assessment, nil
}

// CachedAssessment returns the cached assessment for a route, or nil.
func (e *Engine) CachedAssessment(routeID string, departure time.Time) *RouteAssessment {
	return e.cache.Get(routeID, departure)
}

// InvalidateCache drops the cached assessment for a route.
func (e *Engine) InvalidateCache(routeID string, departure time.Time) {
	e.cache.Invalidate(routeID, departure)
}

// representativeSample picks the sample the overall score inspects: the
// current-location weather when fetched, otherwise conditions at departure.
func representativeSample(current *weather.CurrentConditions, samples []weather.Sample) *weather.Sample {
	if current != nil {
		return &current.Sample
	}
	if len(samples) > 0 {
		return &samples[0]
	}
	return nil
}

// BlendCurrent builds the current-location view, preferring the gateway's
// own risk opinion over local scoring when it supplied one.
func BlendCurrent(current *weather.CurrentConditions) *CurrentRisk {
	if current == nil {
		return nil
	}

	if pr := current.ProviderRisk; pr != nil {
		return &CurrentRisk{
			Sample:       current.Sample,
			Score:        pr.Score,
			Level:        pr.Level,
			Description:  pr.Description,
			FromProvider: true,
		}
	}

	local := Score(&current.Sample, nil)
	description := ""
	for _, f := range local.Factors {
		if f.Impact > 0 {
			description = f.Description
			break
		}
	}

	return &CurrentRisk{
		Sample:      current.Sample,
		Score:       local.OverallRisk,
		Level:       local.Band().Label(),
		Description: description,
	}
}
