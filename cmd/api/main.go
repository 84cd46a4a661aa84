// Package main provides the entrypoint for the cargowatch API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/api"
	"github.com/cargowatch/cargowatch/internal/api/handler"
	"github.com/cargowatch/cargowatch/internal/api/middleware"
	"github.com/cargowatch/cargowatch/internal/config"
	"github.com/cargowatch/cargowatch/internal/database"
	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/provider/resilience"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/telemetry"
	"github.com/cargowatch/cargowatch/internal/watch"
	"github.com/cargowatch/cargowatch/internal/weather"
	"github.com/cargowatch/cargowatch/internal/weather/gateway"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	serviceName := cfg.Service + "-api"

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting cargowatch API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Gateway client behind a circuit breaker, tracked for ops status.
	registry := resilience.NewRegistry()
	gatewayHTTP := resilience.NewClient(resilience.ClientConfig{
		Name:       gateway.ProviderName,
		Timeout:    cfg.Gateway.Timeout,
		MaxRetries: cfg.Gateway.MaxRetries,
	})
	registry.Register(gateway.ProviderName, gatewayHTTP)

	gatewayClient := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     cfg.Gateway.APIKey,
		HTTPClient: gatewayHTTP,
		Registry:   registry,
		Logger:     log,
	})

	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: gatewayClient,
		Logger:   log,
		CacheTTL: cfg.Risk.WeatherCacheTTL,
	})

	hazardService := hazard.NewService(hazard.ServiceConfig{
		Provider: gatewayClient,
		Logger:   log,
	})

	engine := risk.NewEngine(risk.EngineConfig{
		Sampler:              route.NewSampler(route.SamplerConfig{MaxPoints: cfg.Risk.MaxSamplePoints}),
		Weather:              weatherService,
		Hazards:              hazardService,
		Fallback:             weather.NewSyntheticProvider(time.Now().UnixNano()),
		UseSyntheticFallback: cfg.Risk.UseSyntheticFallback,
		CacheTTL:             cfg.Risk.AssessmentCacheTTL,
		Logger:               log,
	})

	var repo watch.Repository
	readyChecks := make(map[string]handler.ReadyChecker)
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Name).
			Msg("database connected")

		repo = watch.NewPostgresRepository(pool)
		readyChecks["database"] = pool.Ping
	} else {
		log.Info().Msg("running with in-memory persistence")
		repo = watch.NewInMemoryRepository()
	}

	watchService := watch.NewService(watch.ServiceConfig{
		Repository:       repo,
		Engine:           engine,
		Logger:           log,
		DefaultPollEvery: cfg.Risk.PollInterval,
	})

	monitorCtx, stopMonitors := context.WithCancel(ctx)
	defer stopMonitors()
	if err := watchService.Start(monitorCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start watch monitoring")
	}
	defer watchService.Stop()

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		Engine:         engine,
		WeatherService: weatherService,
		WatchService:   watchService,
		Registry:       registry,
		ReadyChecks:    readyChecks,
		StandardLimit:  cfg.RateLimit.RequestsPerMinute,
		AssessLimit:    cfg.RateLimit.AssessPerMinute,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
