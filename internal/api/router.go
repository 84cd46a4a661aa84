// Package api provides the HTTP API for cargowatch.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/api/handler"
	"github.com/cargowatch/cargowatch/internal/api/middleware"
	"github.com/cargowatch/cargowatch/internal/provider/resilience"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/watch"
	"github.com/cargowatch/cargowatch/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	ServiceName    string
	Metrics        *middleware.Metrics
	Engine         *risk.Engine
	WeatherService *weather.Service
	WatchService   *watch.Service
	Registry       *resilience.Registry
	ReadyChecks    map[string]handler.ReadyChecker

	// StandardLimit and AssessLimit are requests per minute per client IP.
	// Zero applies the defaults.
	StandardLimit int
	AssessLimit   int
}

// Default rate limits, requests per minute per client IP.
const (
	defaultStandardLimit = 120
	defaultAssessLimit   = 20
)

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "cargowatch-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.ReadyChecks)
	riskHandler := handler.NewRiskHandler(cfg.Engine, cfg.WeatherService)
	watchHandler := handler.NewWatchHandler(cfg.WatchService)

	standardLimit := cfg.StandardLimit
	if standardLimit <= 0 {
		standardLimit = defaultStandardLimit
	}
	assessLimit := cfg.AssessLimit
	if assessLimit <= 0 {
		assessLimit = defaultAssessLimit
	}

	standardRateLimit := middleware.RateLimitByIP(middleware.PerMinute(standardLimit))
	assessRateLimit := middleware.RateLimitByIP(middleware.PerMinute(assessLimit))

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (no rate limiting, probed by infrastructure)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Assessment endpoint - expensive fan-out to the gateway, strict rate limiting
		r.With(assessRateLimit).Post("/routes:assess", riskHandler.AssessRoute)

		// Current weather - standard rate limiting
		r.With(standardRateLimit).Get("/weather/current", riskHandler.CurrentWeather)

		// Watches
		r.Route("/watches", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", watchHandler.ListWatches)
			r.Post("/", watchHandler.CreateWatch)
			r.Post("/{watchId}:refresh", watchHandler.RefreshWatch)
			r.Route("/{watchId}", func(r chi.Router) {
				r.Get("/", watchHandler.GetWatch)
				r.Delete("/", watchHandler.DeleteWatch)
				r.Get("/assessment", watchHandler.WatchAssessment)
			})
		})
	})

	return r
}
